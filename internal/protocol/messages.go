package protocol

// Frame is a single encoded video frame pushed by the robot. Frames carry no
// identity beyond arrival order; a superseded frame is discarded, never queued.
type Frame struct {
	Payload []byte
}

// AudioPacket is one encoded audio packet with its sender-side metadata.
// SequenceNumber is assigned by the robot per session and is never renumbered
// downstream; receivers use it only to estimate loss.
type AudioPacket struct {
	Payload        []byte
	Timestamp      uint64
	SequenceNumber uint32
	PacketLength   uint16
	AlgorithmDelay uint32
}

// PCMResult is a decoded audio packet. AlgorithmDelay is the fixed
// codec-introduced latency, carried through so consumers can compute
// end-to-end lag from Timestamp.
type PCMResult struct {
	PCM            []byte
	Timestamp      uint64
	SequenceNumber uint32
	AlgorithmDelay uint32
}

// StreamResponse is the single terminal message written per ingestion stream.
type StreamResponse struct {
	StatusMessage string `json:"status_message"`
}
