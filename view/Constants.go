package view

import "time"

const (
	EmptyString  = ""
	GzipSuffix   = ".gz"
	PcapSuffix   = ".pcap"
	ApiKeyHeader = "api-key"
	// DefaultDumpFileSize reassembled datagram bytes stored in a single dump file
	DefaultDumpFileSize = 64 * 1024 * 1024
	// DefaultCaptureDuration default inspection duration instead of pcap.BlockForever
	DefaultCaptureDuration = time.Second * 60
	MinCaptureDuration     = time.Second * 15
	// CaptureInterfaceAny a synonym for all interfaces at the host
	CaptureInterfaceAny = "any"
	// CaptureInterfaceDetect use the first interface with an IPv4 or IPv6 address
	CaptureInterfaceDetect = "auto"
	// DefaultSnapLenBytes The same default as tcpdump.
	DefaultSnapLenBytes = 256 * 1024
	// ArrayJoinSeparator a separator to use with strings.Join
	ArrayJoinSeparator = ","
	// FilterMaxLength a limit to capture filter length
	FilterMaxLength = 64 * 1024
	// DefaultRecentListLimit datagrams returned by the recent list when no limit requested
	DefaultRecentListLimit = 50
)
