package replication

// EmptyRDB is the fixed, opaque 88-byte snapshot payload a primary sends
// as the second FULLRESYNC frame. Generating a real RDB file is out of
// scope; every full resync in this server transmits this same constant
// blob, matching the reference implementation's rdb_state constant.
var EmptyRDB = []byte{
	'R', 'E', 'D', 'I', 'S', '0', '0', '1', '1',
	0xfa, 0x09, 'r', 'e', 'd', 'i', 's', '-', 'v', 'e', 'r',
	0x05, '7', '.', '2', '.', '0',
	0xfa, 0x0a, 'r', 'e', 'd', 'i', 's', '-', 'b', 'i', 't', 's',
	0xc0, 0x40,
	0xfa, 0x05, 'c', 't', 'i', 'm', 'e',
	0xc2, 0x6d, 0x08, 0xbc, 0x65,
	0xfa, 0x08, 'u', 's', 'e', 'd', '-', 'm', 'e', 'm',
	0xc2, 0xb0, 0xc4, 0x10, 0x00,
	0xfa, 0x08, 'a', 'o', 'f', '-', 'b', 'a', 's', 'e',
	0xc0, 0x00,
	0xff,
	0xf0, 0x6e, 0x3b, 0xfe, 0xc0, 0xff, 0x5a, 0xa2,
}
