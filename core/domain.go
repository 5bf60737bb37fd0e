package core

import (
	"github.com/goliatone/go-msgbox/boundary"
	"github.com/goliatone/go-msgbox/mailbox"
)

const MaxMessageSize = mailbox.MaxMessageSize

type PutRequest struct {
	Source boundary.Region
	Length int
}

// NewPutRequest builds a request that enqueues payload in full. A nil payload
// is the null reference and is rejected by Put.
func NewPutRequest(payload []byte) PutRequest {
	return PutRequest{Source: boundary.Bytes(payload), Length: len(payload)}
}

type PutResult struct {
	MessageID string
	Length    int
	Depth     int
}

type GetRequest struct {
	Destination boundary.Region
	Capacity    int
}

// NewGetRequest builds a request that receives into buf, using its length as
// the capacity.
func NewGetRequest(buf []byte) GetRequest {
	return GetRequest{Destination: boundary.Bytes(buf), Capacity: len(buf)}
}

type GetResult struct {
	MessageID string
	Length    int
	Depth     int
}

type DrainResult struct {
	Released int
}

type Stats struct {
	Depth            int
	LiveAllocations  int64
	AllocationsKnown bool
}
