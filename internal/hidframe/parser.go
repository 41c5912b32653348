package hidframe

import "github.com/glasstokey/glasstokey/internal/side"

// Parse decodes buf into out, writing directly into out's caller-owned
// storage — no allocation. reportID is the first byte of buf and is
// expected to equal TouchReportID; callers that multiplex several report
// ids are expected to have already routed on it before calling Parse.
//
// Wire layout (standard PTP): report-id byte, then 5 slots of 9 bytes:
//
//	byte 0   flags: bit0 = tip-switch, bit2 = confidence
//	byte 1   contact id
//	byte 2-3 x, little-endian
//	byte 4-5 y, little-endian
//	byte 6   pressure
//	byte 7   phase
//	byte 8   scan-time (ignored downstream)
//
// Parse does not reject contacts on tip-switch/confidence — the decoder
// package filters. A short buffer returns *ShortBufferError and leaves out
// untouched beyond Count, which is set to 0.
func Parse(buf []byte, arrivalTick uint64, s side.Side, out *Frame) error {
	if len(buf) < MinReportLen {
		out.Count = 0
		return &ShortBufferError{Got: len(buf), Want: MinReportLen}
	}

	out.ArrivalTick = arrivalTick
	out.Side = s

	body := buf[1:]
	n := len(body) / slotSize
	if n > MaxContacts {
		n = MaxContacts
	}

	for i := 0; i < n; i++ {
		slot := body[i*slotSize : i*slotSize+slotSize]
		flags := slot[0]
		out.Contacts[i] = ContactFrame{
			RawID:      uint32(slot[1]),
			X:          uint16(slot[2]) | uint16(slot[3])<<8,
			Y:          uint16(slot[4]) | uint16(slot[5])<<8,
			Tip:        flags&0x01 != 0,
			Confidence: flags&0x04 != 0,
			Pressure:   slot[6],
			Phase:      slot[7],
		}
	}
	out.Count = n
	return nil
}
