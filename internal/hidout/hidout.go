// Package hidout implements the OS-input adapter (spec §4.X's downstream
// collaborator): it drains dispatch.Event values from a dispatch.Queue in
// Sequence order and synthesizes USB HID reports over an AOA2 (Android Open
// Accessory 2.0) control-transfer connection, the same protocol the teacher
// used to target a single Rabbit R1 — generalized here to any USB HID
// peripheral that registers as an AOA2 accessory.
package hidout

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/gousb"

	"github.com/glasstokey/glasstokey/internal/dispatch"
)

const (
	reqRegisterHID   = 54 // ACCESSORY_REGISTER_HID
	reqUnregisterHID = 55 // ACCESSORY_UNREGISTER_HID
	reqSetHIDDesc    = 56 // ACCESSORY_SET_HID_REPORT_DESC
	reqSendHIDEvent  = 57 // ACCESSORY_SEND_HID_EVENT

	bmRequestTypeOut = 0x40

	usbTimeout = 1000 * time.Millisecond
)

// DescriptorType identifies which HID report descriptor a Sink registers.
type DescriptorType int

const (
	DescKeyboard DescriptorType = iota
	DescMouse
	DescConsumerControl
)

// keyboardDescriptor: 8-byte reports [modifier, reserved, key1..key6],
// standard 6-key-rollover boot keyboard.
var keyboardDescriptor = []byte{
	0x05, 0x01, 0x09, 0x06, 0xA1, 0x01,
	0x05, 0x07, 0x19, 0xE0, 0x29, 0xE7, 0x15, 0x00, 0x25, 0x01,
	0x75, 0x01, 0x95, 0x08, 0x81, 0x02,
	0x95, 0x01, 0x75, 0x08, 0x81, 0x01,
	0x95, 0x06, 0x75, 0x08, 0x15, 0x00, 0x26, 0xFF, 0x00,
	0x05, 0x07, 0x19, 0x00, 0x29, 0xFF, 0x81, 0x00,
	0xC0,
}

// mouseDescriptor: 4-byte reports [buttons, dx, dy, wheel], relative motion.
var mouseDescriptor = []byte{
	0x05, 0x01, 0x09, 0x02, 0xA1, 0x01,
	0x09, 0x01, 0xA1, 0x00,
	0x05, 0x09, 0x19, 0x01, 0x29, 0x05,
	0x15, 0x00, 0x25, 0x01, 0x95, 0x05, 0x75, 0x01, 0x81, 0x02,
	0x95, 0x01, 0x75, 0x03, 0x81, 0x01,
	0x05, 0x01, 0x09, 0x30, 0x09, 0x31, 0x09, 0x38,
	0x15, 0x81, 0x25, 0x7F, 0x75, 0x08, 0x95, 0x03, 0x81, 0x06,
	0xC0,
	0xC0,
}

// consumerDescriptor: 2-byte little-endian usage value, used for the
// haptic-adjacent out-of-scope consumer-control stub only.
var consumerDescriptor = []byte{
	0x05, 0x0C, 0x09, 0x01, 0xA1, 0x01,
	0x15, 0x00, 0x26, 0xFF, 0x0F,
	0x19, 0x00, 0x2A, 0xFF, 0x0F,
	0x75, 0x10, 0x95, 0x01, 0x81, 0x00,
	0xC0,
}

func descriptorBytes(dt DescriptorType) []byte {
	switch dt {
	case DescKeyboard:
		return keyboardDescriptor
	case DescMouse:
		return mouseDescriptor
	case DescConsumerControl:
		return consumerDescriptor
	default:
		return nil
	}
}

// Device wraps a libusb handle to an AOA2-registered accessory.
type Device struct {
	ctx *gousb.Context
	dev *gousb.Device

	nextHIDID  uint16
	registered []uint16
	ids        map[DescriptorType]uint16
}

// Open finds a USB device matching (vendorID, productID) — optionally
// narrowed by serial — and opens a connection (no HID descriptors
// registered yet).
func Open(vendorID, productID gousb.ID, serial string) (*Device, error) {
	ctx := gousb.NewContext()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == vendorID && desc.Product == productID
	})
	if err != nil && len(devs) == 0 {
		ctx.Close()
		return nil, fmt.Errorf("no accessory found (VID:0x%04x PID:0x%04x): %w", vendorID, productID, err)
	}

	var dev *gousb.Device
	for _, d := range devs {
		s, _ := d.SerialNumber()
		if serial == "" || s == serial {
			dev = d
		} else {
			d.Close()
		}
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("accessory with serial %q not found", serial)
	}

	dev.SetAutoDetach(true)
	return &Device{ctx: ctx, dev: dev, nextHIDID: 1, ids: make(map[DescriptorType]uint16, 3)}, nil
}

// Register registers dt's HID descriptor with the accessory via AOA2.
func (d *Device) Register(dt DescriptorType) (uint16, error) {
	desc := descriptorBytes(dt)
	if desc == nil {
		return 0, fmt.Errorf("unknown descriptor type %d", dt)
	}

	id := d.nextHIDID
	d.nextHIDID++

	if err := d.controlTransfer(reqRegisterHID, id, uint16(len(desc)), nil); err != nil {
		return 0, fmt.Errorf("REGISTER_HID failed: %w", err)
	}
	if err := d.controlTransfer(reqSetHIDDesc, id, 0, desc); err != nil {
		_ = d.controlTransfer(reqUnregisterHID, id, 0, nil)
		return 0, fmt.Errorf("SET_HID_REPORT_DESC failed: %w", err)
	}
	time.Sleep(300 * time.Millisecond)

	d.registered = append(d.registered, id)
	d.ids[dt] = id
	return id, nil
}

// SendReport sends a raw HID report to dt's registered descriptor.
func (d *Device) SendReport(dt DescriptorType, report []byte) error {
	id, ok := d.ids[dt]
	if !ok {
		return fmt.Errorf("descriptor %d not registered", dt)
	}
	return d.controlTransfer(reqSendHIDEvent, id, 0, report)
}

// Close unregisters every descriptor and releases USB resources.
func (d *Device) Close() {
	for _, id := range d.registered {
		_ = d.controlTransfer(reqUnregisterHID, id, 0, nil)
	}
	d.registered = nil
	d.dev.Close()
	d.ctx.Close()
}

func (d *Device) controlTransfer(bRequest uint8, wValue, wIndex uint16, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := d.dev.Control(bmRequestTypeOut, bRequest, wValue, wIndex, data)
	if err != nil {
		return fmt.Errorf("control transfer (req=%d wValue=%d wIndex=%d): %w", bRequest, wValue, wIndex, err)
	}
	return nil
}

// Sink drains a dispatch.Queue and synthesizes HID reports over a Device.
// It holds the set of currently-pressed key codes so KeyDown/KeyUp and
// MO-chord bursts compose into one correctly-rolled-over keyboard report.
type Sink struct {
	dev *Device

	held        []uint16 // currently down key codes, for 6-key rollover
	heldMods    uint32
	mouseButton int

	hapticMinInterval time.Duration
	lastHaptic        time.Time
}

// NewSink wraps dev. Descriptors must already be registered via
// dev.Register(DescKeyboard) / dev.Register(DescMouse) before Run starts.
func NewSink(dev *Device, hapticMinInterval time.Duration) *Sink {
	return &Sink{dev: dev, hapticMinInterval: hapticMinInterval}
}

// Run drains q until ctx is cancelled or the queue closes, translating
// every event in Sequence order. Errors are logged and swallowed — a
// dropped accessory write must not take down the dispatch pump thread on
// the other end of the queue.
func (s *Sink) Run(ctx context.Context, q *dispatch.Queue) {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		q.Close()
		close(done)
	}()

	for {
		ev, ok := q.Pop()
		if !ok {
			select {
			case <-done:
			default:
			}
			return
		}
		s.apply(ev)
	}
}

func (s *Sink) apply(ev dispatch.Event) {
	var err error
	switch ev.Kind {
	case dispatch.KeyDown:
		err = s.keyDown(ev)
		s.maybeHaptic(ev)
	case dispatch.KeyUp:
		err = s.keyUp(ev)
	case dispatch.MouseDown:
		s.mouseButton |= 1 << uint(ev.Button-1)
		err = s.sendMouse(0, 0)
	case dispatch.MouseUp:
		s.mouseButton &^= 1 << uint(ev.Button-1)
		err = s.sendMouse(0, 0)
	case dispatch.MouseMove:
		err = s.sendMouse(ev.DX, ev.DY)
	case dispatch.Chord:
		err = s.chord(ev)
	}
	if err != nil {
		log.Printf("[hidout] %s failed: %v", ev.Kind, err)
	}
}

func (s *Sink) keyDown(ev dispatch.Event) error {
	code := resolveKeyCode(ev)
	if code != 0 && !containsCode(s.held, code) {
		if len(s.held) >= 6 {
			s.held = s.held[1:]
		}
		s.held = append(s.held, code)
	}
	s.heldMods |= ev.ModMask
	return s.sendKeyboard()
}

func (s *Sink) keyUp(ev dispatch.Event) error {
	code := resolveKeyCode(ev)
	s.held = removeCode(s.held, code)
	s.heldMods &^= ev.ModMask
	return s.sendKeyboard()
}

// chord sends every code in the sequence down together, then releases all
// of them — a one-shot burst, never added to the rollover state (spec §4.X
// Chord: "a single one-shot dispatch, independent of the held-key set").
func (s *Sink) chord(ev dispatch.Event) error {
	report := make([]byte, 8)
	for i, code := range ev.KeySequence {
		if i >= 6 {
			break
		}
		report[2+i] = byte(code)
	}
	if err := s.dev.SendReport(DescKeyboard, report); err != nil {
		return err
	}
	time.Sleep(20 * time.Millisecond)
	return s.sendKeyboard()
}

func (s *Sink) sendKeyboard() error {
	report := make([]byte, 8)
	report[0] = byte(s.heldMods)
	for i, code := range s.held {
		if i >= 6 {
			break
		}
		report[2+i] = byte(code)
	}
	return s.dev.SendReport(DescKeyboard, report)
}

func (s *Sink) sendMouse(dx, dy int32) error {
	report := []byte{byte(s.mouseButton), clampRel(dx), clampRel(dy), 0}
	return s.dev.SendReport(DescMouse, report)
}

// maybeHaptic stands in for real haptic actuation (spec's Non-goal: out of
// scope beyond event tagging) — it only throttle-logs when the Haptic flag
// is set, matching HapticMinInterval.
func (s *Sink) maybeHaptic(ev dispatch.Event) {
	if ev.Flags&dispatch.Haptic == 0 {
		return
	}
	now := time.Now()
	if now.Sub(s.lastHaptic) < s.hapticMinInterval {
		return
	}
	s.lastHaptic = now
	log.Printf("[hidout] haptic tick (%s side)", ev.Side)
}

func resolveKeyCode(ev dispatch.Event) uint16 {
	if ev.KeyCode != 0 {
		return ev.KeyCode
	}
	if ev.Char != 0 {
		return charToUsage(ev.Char)
	}
	return 0
}

func clampRel(v int32) byte {
	if v > 127 {
		v = 127
	}
	if v < -127 {
		v = -127
	}
	return byte(int8(v))
}

func containsCode(codes []uint16, c uint16) bool {
	for _, v := range codes {
		if v == c {
			return true
		}
	}
	return false
}

func removeCode(codes []uint16, c uint16) []uint16 {
	for i, v := range codes {
		if v == c {
			return append(codes[:i], codes[i+1:]...)
		}
	}
	return codes
}

// charToUsage maps a rune to its USB HID usage-page-0x07 key code for the
// common ASCII letters/digits a keymap's CHAR: binding produces.
func charToUsage(r rune) uint16 {
	switch {
	case r >= 'a' && r <= 'z':
		return uint16(0x04 + (r - 'a'))
	case r >= 'A' && r <= 'Z':
		return uint16(0x04 + (r - 'A'))
	case r >= '1' && r <= '9':
		return uint16(0x1e + (r - '1'))
	case r == '0':
		return 0x27
	default:
		return 0
	}
}
