package shell

import (
	"fmt"

	"github.com/loopstream/pedal/looper"
)

// FormatParameter renders a parameter's current scaled value the way
// the original firmware's GetParameterDisplay does, one case per
// recognized option.
func FormatParameter(c *looper.Controller, param looper.Param) string {
	raw := c.Parameter(param)
	switch param {
	case looper.InGain, looper.OutGain:
		var db float64
		if param == looper.InGain {
			db = looper.ScaleInGainDB(raw)
		} else {
			db = looper.ScaleOutGainDB(raw)
		}
		return fmt.Sprintf("%.1fdB", db)
	case looper.LoadSlot, looper.SaveSlot:
		return fmt.Sprintf("%d", looper.ScaleSlot(raw))
	case looper.Bpm:
		return fmt.Sprintf("%d", looper.ScaleBpm(raw))
	case looper.SetLengthMode:
		switch looper.ScaleLengthMode(raw) {
		case looper.Seconds:
			return "Seconds"
		case looper.Beats:
			return "Beats"
		default:
			return "Bars"
		}
	case looper.SetLength:
		switch looper.ScaleLengthMode(c.Parameter(looper.SetLengthMode)) {
		case looper.Beats:
			return fmt.Sprintf("%d beats", looper.ScaleLengthBeats(raw))
		case looper.Bars:
			return fmt.Sprintf("%d bars", looper.ScaleLengthBars(raw))
		default:
			return fmt.Sprintf("%.1f sec", looper.ScaleLengthSeconds(raw))
		}
	default:
		return fmt.Sprintf("%d", raw)
	}
}
