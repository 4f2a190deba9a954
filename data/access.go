package data

// AccessMode represents the access modes for opening a large object.
// The bit values are fixed by the backend's ABI (PostgreSQL's INV_READ and
// INV_WRITE) and are passed to the backend's open primitive verbatim.
type AccessMode int32

// Access mode constants. Read and Write can be combined using bitwise OR.
const (
	AccessModeRead  AccessMode = 0x00040000 // INV_READ: open for reading
	AccessModeWrite AccessMode = 0x00020000 // INV_WRITE: open for writing

	AccessModeReadWrite = AccessModeRead | AccessModeWrite
)

// IsReadOnly checks if the mode only allows reading.
func (m AccessMode) IsReadOnly() bool {
	return m&AccessModeRead != 0 && m&AccessModeWrite == 0
}

// IsWriteOnly checks if the mode only allows writing.
func (m AccessMode) IsWriteOnly() bool {
	return m&AccessModeWrite != 0 && m&AccessModeRead == 0
}

// IsReadWrite checks if the mode allows both reading and writing.
func (m AccessMode) IsReadWrite() bool {
	return m&AccessModeRead != 0 && m&AccessModeWrite != 0
}

// CanRead checks if the mode includes read access.
func (m AccessMode) CanRead() bool {
	return m&AccessModeRead != 0
}

// CanWrite checks if the mode includes write access.
func (m AccessMode) CanWrite() bool {
	return m&AccessModeWrite != 0
}

// Flags validates the mode and returns the wire flag bits passed to the
// backend's open primitive. Returns ErrInvalidMode for a mode without any
// recognized access bit or with bits outside the ABI.
func (m AccessMode) Flags() (int32, error) {
	if m&^AccessModeReadWrite != 0 {
		return 0, ErrInvalidMode
	}
	if m&AccessModeReadWrite == 0 {
		return 0, ErrInvalidMode
	}
	return int32(m), nil
}

func (m AccessMode) String() string {
	switch {
	case m.IsReadWrite():
		return "rw"
	case m.IsReadOnly():
		return "r"
	case m.IsWriteOnly():
		return "w"
	default:
		return "invalid"
	}
}
