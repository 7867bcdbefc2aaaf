package hidparser

// Diagnostic name tables straight out of the HID 1.11 usage tables, kept for
// the same reason the original descriptor parser carried them: so a caller
// walking EnumerateValues can log something readable instead of raw
// page/usage numbers. Never consulted by Parse/ScanValues themselves.

var usagePageNames = []string{
	"Undefined",
	"Generic Desktop",
	"Simulation",
	"VR",
	"Sport",
	"Game Controls",
	"Generic Device",
	"Keyboard",
	"LEDs",
	"Button",
	"Ordinal",
	"Telephony",
	"Consumer",
	"Digitizer",
}

var genericDesktopUsageNames = map[Usage]string{
	0x00: "Undefined",
	0x01: "Pointer",
	0x02: "Mouse",
	0x04: "Joystick",
	0x05: "Game Pad",
	0x06: "Keyboard",
	0x07: "Keypad",
	0x08: "Multi-axis Controller",
	0x09: "Tablet PC System Controls",
	0x30: "X",
	0x31: "Y",
	0x32: "Z",
	0x33: "Rx",
	0x34: "Ry",
	0x35: "Rz",
	0x36: "Slider",
	0x37: "Dial",
	0x38: "Wheel",
	0x39: "Hat Switch",
	0x3a: "Counted Buffer",
	0x3b: "Byte Count",
	0x3c: "Motion Wakeup",
	0x3d: "Start",
	0x3e: "Select",
	0x90: "D-pad Up",
	0x91: "D-pad Down",
	0x92: "D-pad Right",
	0x93: "D-pad Left",
}

var gameUsageNames = map[Usage]string{
	0x00: "Undefined",
	0x01: "3D Game Controller",
	0x02: "Pinball Device",
	0x03: "Gun Device",
	0x20: "Point of View",
	0x21: "Turn Right/Left",
	0x22: "Pitch Forward/Backward",
	0x23: "Roll Right/Left",
	0x39: "Gamepad Trigger",
}
