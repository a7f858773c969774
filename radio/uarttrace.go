package radio

import (
	"fmt"

	"github.com/tve/scum-tuning/registry"
	"github.com/tve/scum-tuning/tuning"
	"github.com/tve/scum-tuning/varint"
)

// TraceLine formats one diagnostic trace line in the textual format
// spec section 6 documents: "{T|R}X <chan> <co>.<mid>.<fine>\n".
func TraceLine(channel int, mode registry.ChannelMode, code tuning.TuningCode) string {
	dir := "R"
	if mode == registry.TX {
		dir = "T"
	}
	return fmt.Sprintf("%sX %d %d.%d.%d\n", dir, channel, code.Coarse, code.Mid, code.Fine)
}

// EmitTraceLine writes one textual trace line to u.
func EmitTraceLine(u UART, channel int, mode registry.ChannelMode, code tuning.TuningCode) error {
	return u.TxSendStr(TraceLine(channel, mode, code))
}

// EncodeTraceBurst packs a run of tuning-code deltas for one channel
// into the varint wire encoding, as a smaller alternative to repeated
// textual trace lines: the first code is carried whole as three
// signed values (coarse, mid, fine), and every subsequent code is
// carried as the signed delta from its predecessor in each field.
func EncodeTraceBurst(codes []tuning.TuningCode) []byte {
	if len(codes) == 0 {
		return nil
	}
	vals := make([]int, 0, len(codes)*3)
	prev := codes[0]
	vals = append(vals, int(prev.Coarse), int(prev.Mid), int(prev.Fine))
	for _, c := range codes[1:] {
		vals = append(vals, int(c.Coarse)-int(prev.Coarse), int(c.Mid)-int(prev.Mid), int(c.Fine)-int(prev.Fine))
		prev = c
	}
	return varint.Encode(vals)
}

// DecodeTraceBurst is the inverse of EncodeTraceBurst.
func DecodeTraceBurst(buf []byte) []tuning.TuningCode {
	vals := varint.Decode(buf)
	if len(vals) == 0 || len(vals)%3 != 0 {
		return nil
	}
	codes := make([]tuning.TuningCode, 0, len(vals)/3)
	cur := tuning.TuningCode{Coarse: byte(vals[0]), Mid: byte(vals[1]), Fine: byte(vals[2])}
	codes = append(codes, cur)
	for i := 3; i < len(vals); i += 3 {
		cur = tuning.TuningCode{
			Coarse: byte(int(cur.Coarse) + vals[i]),
			Mid:    byte(int(cur.Mid) + vals[i+1]),
			Fine:   byte(int(cur.Fine) + vals[i+2]),
		}
		codes = append(codes, cur)
	}
	return codes
}

// EmitTraceBurst writes an encoded burst to u.
func EmitTraceBurst(u UART, codes []tuning.TuningCode) error {
	return u.TxSend(EncodeTraceBurst(codes))
}
