package protocol

// Frame markers and the stuffing byte. The start and end markers are the
// same two bytes in opposite order, so an unescaped 0xAA/0x55 inside the
// body would break frame alignment.
const (
	StartMark1 byte = 0xAA
	StartMark2 byte = 0x55
	EndMark1   byte = 0x55
	EndMark2   byte = 0xAA
	EscapeByte byte = 0x00
)

const (
	// Version is the current wire layout (CRC after payload, escaped body).
	Version uint8 = 0x02
	// VersionV1 is the legacy layout spoken by the Bluetooth emulator
	// (CRC between header and payload, unescaped body).
	VersionV1 uint8 = 0x01

	// MinFrameLen is markers(4) + header(8) + crc(4) with an empty payload.
	MinFrameLen = 16

	// MaxPacketLen bounds one complete wire frame.
	MaxPacketLen = 512
	// MaxPayloadLen bounds the unescaped TLV payload of one frame.
	MaxPayloadLen = MaxPacketLen - MinFrameLen

	// MaxPacketID is the largest packet id; the counter wraps past it.
	MaxPacketID uint16 = 0x7F
)

// PacketType identifies the frame direction and role.
type PacketType uint8

const (
	HostRequest    PacketType = 0x00
	HostResponse   PacketType = 0x01
	HostError      PacketType = 0x0F
	DeviceRequest  PacketType = 0x10
	DeviceResponse PacketType = 0x11
	DeviceError    PacketType = 0x1F
)

// Status is the per-command result carried in the ST field of a response.
type Status uint8

const (
	StatusOK             Status = 0x00
	StatusInvalidParam   Status = 0x01
	StatusNotInitialized Status = 0x02
	StatusSensorError    Status = 0x03
	StatusStorageError   Status = 0x04
	StatusInternalError  Status = 0xFF
)

// ErrorCode is carried in the EC field of an error frame.
type ErrorCode uint8

const (
	ErrCodeCorrupt            ErrorCode = 0x01
	ErrCodeUnexpectedResponse ErrorCode = 0x02
	ErrCodeUnknown            ErrorCode = 0xFF
)

// Instruction strings. Every command is exactly 4 ASCII characters.
const (
	CmdPing        = "ping"
	CmdGetTemp     = "temp"
	CmdGetDate     = "gdat"
	CmdGetTime     = "gtim"
	CmdSetDate     = "sdat"
	CmdSetTime     = "stim"
	CmdGetAlarms   = "galm"
	CmdSetAlarms   = "salm"
	CmdGetLog      = "glog"
	CmdSetLED      = "sled"
	CmdResetLED    = "rled"
	CmdSetBuzzer   = "sbzr"
	CmdResetBuzzer = "rbzr"
)

// TLV tags. Each tag is exactly 2 ASCII characters; "T ", "L " and "H "
// carry a trailing space on the wire.
const (
	TagInstruction = "IN"
	TagData        = "DA"
	TagStatus      = "ST"
	TagErrorCode   = "EC"
	TagErrorDesc   = "ED"

	TagTemperature = "T "

	TagYear    = "YY"
	TagMonth   = "MM"
	TagDay     = "DD"
	TagWeekday = "WK"
	TagHour    = "HH"
	TagMinute  = "MM" // shares the month tag; disambiguated by command
	TagSecond  = "SS"

	TagAlarmList = "AL"
	TagAlarmItem = "IT"
	TagAlarmID   = "ID"
	TagAlarmLow  = "L "
	TagAlarmHigh = "H "

	TagLogList   = "LG"
	TagTimestamp = "TS"
	TagTimeStart = "T1"
	TagTimeEnd   = "T2"
	TagMaxCount  = "MX"
)
