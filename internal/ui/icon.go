package ui

// iconBytes is a 16x16 PNG crop-frame glyph shown in the system tray.
var iconBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff, 0x61, 0x00, 0x00, 0x00,
	0x2c, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x60, 0xa0, 0x06, 0x90,
	0x93, 0x93, 0xfb, 0x4f, 0x0e, 0xa6, 0xbe, 0x01, 0xa4, 0xba, 0x18, 0xab,
	0xc0, 0x87, 0x55, 0x46, 0xff, 0xf1, 0xe1, 0x51, 0x03, 0x46, 0x86, 0x01,
	0x14, 0x25, 0xa4, 0x81, 0xcb, 0x0b, 0x94, 0x00, 0x00, 0x94, 0x7f, 0x34,
	0x30, 0xee, 0x58, 0xd0, 0x15, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e,
	0x44, 0xae, 0x42, 0x60, 0x82,
}
