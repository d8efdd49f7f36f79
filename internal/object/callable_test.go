package object

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/objcore/internal/variant"
)

func TestNullCallable(t *testing.T) {
	var c Callable
	assert.True(t, c.IsNull())
	assert.False(t, c.IsValid())
	assert.Equal(t, "null", c.String())
	assert.True(t, NewCallable(nil, "x").IsNull())
	assert.True(t, NewCustomCallable("nil", nil).IsNull())

	_, err := c.Call()
	assert.True(t, IsInvalidArgument(err))
}

func TestMethodCallable(t *testing.T) {
	f := newFixture(t)
	r := f.newOf(t, "Receiver")

	c := NewCallable(r, "on_a")
	assert.False(t, c.IsNull())
	assert.True(t, c.IsValid())
	assert.False(t, c.IsCustom())
	assert.Equal(t, r.ID(), c.Target())
	assert.Equal(t, "on_a", c.Method())
	assert.Equal(t, "Receiver::on_a", c.String())
	assert.True(t, c.Equal(NewCallable(r, "on_a")))
	assert.True(t, c == f.db.Callable(r.ID(), "on_a"))
	assert.False(t, c.Equal(NewCallable(r, "on_b")))

	assert.False(t, NewCallable(r, "missing").IsValid())

	_, err := c.Call(variant.Int(1))
	require.NoError(t, err)
	require.Len(t, f.log.calls, 1)

	_, err = NewCallable(r, "missing").Call()
	assert.True(t, IsNotFound(err))

	r.Free()
	assert.False(t, c.IsValid())
	assert.Equal(t, "ObjectID("+r.ID().String()+")::on_a", c.String())
	_, err = c.Call()
	assert.True(t, IsDanglingReference(err))
}

func TestCustomCallable(t *testing.T) {
	var got []variant.Value
	fn := func(args []variant.Value) (variant.Value, error) {
		got = args
		return variant.Int(len(args)), nil
	}
	a := NewCustomCallable("counter", fn)
	b := NewCustomCallable("counter", fn)

	assert.True(t, a.IsValid())
	assert.True(t, a.IsCustom())
	assert.True(t, a.Target().IsNull())
	assert.Equal(t, "counter", a.Method())
	assert.Equal(t, "custom:counter", a.String())
	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(b))

	out, err := a.Call(variant.Int(1), variant.Int(2))
	require.NoError(t, err)
	assert.Equal(t, variant.Int(2), out)
	assert.Equal(t, []variant.Value{variant.Int(1), variant.Int(2)}, got)

	failing := NewCustomCallable("failing", func([]variant.Value) (variant.Value, error) {
		return nil, errors.New("nope")
	})
	out, err = failing.Call()
	assert.EqualError(t, err, "nope")
	assert.Equal(t, variant.Nil{}, out)
}

func TestBindAppendsArgs(t *testing.T) {
	var got []variant.Value
	base := NewCustomCallable("c", func(args []variant.Value) (variant.Value, error) {
		got = args
		return nil, nil
	})

	bound := base.Bind(variant.String("x"))
	twice := bound.Bind(variant.String("y"))
	assert.False(t, bound.Equal(base))
	assert.False(t, bound.Equal(base.Bind(variant.String("x"))))
	assert.Equal(t, []variant.Value{variant.String("x"), variant.String("y")}, twice.BoundArgs())
	assert.Empty(t, base.BoundArgs())

	_, err := twice.Call(variant.Int(1))
	require.NoError(t, err)
	assert.Equal(t, []variant.Value{variant.Int(1), variant.String("x"), variant.String("y")}, got)

	var null Callable
	assert.True(t, null.Bind(variant.Int(1)).IsNull())
}
