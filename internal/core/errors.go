package core

import (
	"errors"
	"fmt"
)

// FetchKind classifies failures at the upstream boundary.
type FetchKind int

const (
	KindNetwork FetchKind = iota + 1
	KindServer
	KindData
)

var (
	ErrNetwork = errors.New("network error")
	ErrServer  = errors.New("server error")
	ErrData    = errors.New("data error")
)

func (k FetchKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindData:
		return "data"
	default:
		return "unknown"
	}
}

func (k FetchKind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindServer:
		return ErrServer
	default:
		return ErrData
	}
}

// FetchError wraps an upstream failure with its kind. Status is set for
// server errors only.
type FetchError struct {
	Kind   FetchKind
	Op     string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Kind == KindServer {
		return fmt.Sprintf("%s: %s: status %d", e.Op, e.Kind, e.Status)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == e.Kind.sentinel() }

// Retryable reports whether the user should be offered a retry.
func (e *FetchError) Retryable() bool { return e.Kind != KindData }

func NetworkError(op string, err error) error {
	return &FetchError{Kind: KindNetwork, Op: op, Err: err}
}

func ServerError(op string, status int) error {
	return &FetchError{Kind: KindServer, Op: op, Status: status}
}

func DataError(op string, err error) error {
	return &FetchError{Kind: KindData, Op: op, Err: err}
}

const (
	MessageNetwork = "सर्वर से कनेक्ट नहीं हो सका। कृपया इंटरनेट जाँचें और पुनः प्रयास करें।"
	MessageServer  = "सर्वर त्रुटि हुई। कृपया कुछ समय बाद पुनः प्रयास करें।"
	MessageData    = "डेटा संसाधित नहीं किया जा सका।"
)

// KindOf returns the taxonomy kind of err. Unclassified errors count as data errors.
func KindOf(err error) FetchKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindData
}

// UserMessage maps err to one of the three banner messages.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindNetwork:
		return MessageNetwork
	case KindServer:
		return MessageServer
	default:
		return MessageData
	}
}
