package smkproto

// Serializer converts payloads to and from their wire bytes. The session only
// depends on this interface.
type Serializer interface {
	Marshal(p *Payload) ([]byte, error)
	Unmarshal(data []byte, p *Payload) error
}

// ProtoSerializer is the protobuf wire format serializer.
type ProtoSerializer struct{}

func (ProtoSerializer) Marshal(p *Payload) ([]byte, error) {
	return p.Marshal()
}

func (ProtoSerializer) Unmarshal(data []byte, p *Payload) error {
	return p.Unmarshal(data)
}
