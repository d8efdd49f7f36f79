package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/objcore/internal/variant"
)

// Domain prefixes for content-addressed row ids.
// Version suffix enables future algorithm migration.
const (
	DomainEmission = "objcore/emission/v1"
	DomainDispatch = "objcore/dispatch/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The null byte keeps
// the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EmissionID computes the content-addressed id of an emission row.
func EmissionID(runID string, seq int64, source uint64, signal string, args []variant.Value) (string, error) {
	obj := variant.NewDictionary(
		variant.P("run_id", variant.String(runID)),
		variant.P("seq", variant.Int(seq)),
		variant.P("source", variant.ObjectRef(source)),
		variant.P("signal", variant.String(signal)),
		variant.P("args", variant.Array(args)),
	)
	canonical, err := variant.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EmissionID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEmission, canonical), nil
}

// DispatchID computes the content-addressed id of a dispatch row.
func DispatchID(runID string, seq, emissionSeq int64, callable, outcome string) (string, error) {
	obj := variant.NewDictionary(
		variant.P("run_id", variant.String(runID)),
		variant.P("seq", variant.Int(seq)),
		variant.P("emission_seq", variant.Int(emissionSeq)),
		variant.P("callable", variant.String(callable)),
		variant.P("outcome", variant.String(outcome)),
	)
	canonical, err := variant.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("DispatchID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDispatch, canonical), nil
}
