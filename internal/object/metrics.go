package object

import "github.com/spacemonkeygo/monkit/v3"

var mon = monkit.Package()

func signalTag(signal string) monkit.SeriesTag {
	return monkit.NewSeriesTag("signal", signal)
}
