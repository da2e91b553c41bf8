package virtio

// Virtio-MMIO v2 register offsets, relative to a device's MMIO base.
const (
	RegMagicValue        = 0x000
	RegVersion           = 0x004
	RegDeviceID          = 0x008
	RegDeviceFeatures    = 0x010
	RegDeviceFeaturesSel = 0x014
	RegDriverFeatures    = 0x020
	RegDriverFeaturesSel = 0x024
	RegQueueSel          = 0x030
	RegQueueNumMax       = 0x034
	RegQueueNum          = 0x038
	RegQueueReady        = 0x044
	RegQueueNotify       = 0x050
	RegInterruptStatus   = 0x060
	RegInterruptAck      = 0x064
	RegStatus            = 0x070
	RegQueueDescLow      = 0x080
	RegQueueDescHigh     = 0x084
	RegQueueAvailLow     = 0x090
	RegQueueAvailHigh    = 0x094
	RegQueueUsedLow      = 0x0a0
	RegQueueUsedHigh     = 0x0a4
	RegConfig            = 0x100

	MagicValue = 0x74726976
	MMIOVersion = 0x2
)

// Device status bits (virtio spec §2.1).
const (
	StatusAcknowledge = 1 << 0
	StatusDriver      = 1 << 1
	StatusDriverOK    = 1 << 2
	StatusFeaturesOK  = 1 << 3
)

// Device-independent ring feature bits and the common bitmask the driver
// offers for both of them.
const (
	FeatureRingIndirectDesc = 28
	FeatureRingEventIdx     = 29

	// DriverFeaturesCommon is the device-independent subset a driver
	// offers during negotiation.
	DriverFeaturesCommon = uint64(1)<<FeatureRingIndirectDesc | uint64(1)<<FeatureRingEventIdx
)

// virtio-net device-specific feature bits.
const (
	NetFeatureCSUM      = 0
	NetFeatureGuestCSUM = 1
	NetFeatureMAC       = 5
	NetFeatureGuestTSO4 = 7
	NetFeatureGuestECN  = 9
	NetFeatureGuestUFO  = 10
	NetFeatureHostTSO4  = 11
	NetFeatureHostECN   = 13
	NetFeatureMrgRxbuf  = 15
	NetFeatureStatus    = 16

	// DriverFeaturesNet is the virtio-net-specific subset a driver offers
	// during negotiation.
	DriverFeaturesNet = uint64(1)<<NetFeatureCSUM |
		uint64(1)<<NetFeatureGuestCSUM |
		uint64(1)<<NetFeatureMAC |
		uint64(1)<<NetFeatureGuestTSO4 |
		uint64(1)<<NetFeatureGuestECN |
		uint64(1)<<NetFeatureGuestUFO |
		uint64(1)<<NetFeatureHostTSO4 |
		uint64(1)<<NetFeatureHostECN |
		uint64(1)<<NetFeatureMrgRxbuf |
		uint64(1)<<NetFeatureStatus
)

// DeviceTypeNet is the virtio device-type ID for a network card.
const DeviceTypeNet = 0x01

// Descriptor flags (virtio spec §2.7.5).
const (
	descFNext  = 1
	descFWrite = 2
)
