package notebook

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// RawMap is an insertion-ordered map of JSON keys to raw values. It backs
// mime bundles and preserved unknown metadata, where the format allows
// arbitrary content and key order must survive a decode/encode round trip.
type RawMap = orderedmap.OrderedMap[string, json.RawMessage]

// NewRawMap returns an empty RawMap.
func NewRawMap() *RawMap {
	return orderedmap.New[string, json.RawMessage]()
}

// OutputType discriminates the output variants.
type OutputType string

// Output variants.
const (
	OutputStream        OutputType = "stream"
	OutputDisplayData   OutputType = "display_data"
	OutputExecuteResult OutputType = "execute_result"
	OutputError         OutputType = "error"
)

// Output is one result artifact attached to a code cell. The concrete types
// are *StreamOutput, *DisplayDataOutput, *ExecuteResultOutput and
// *ErrorOutput; consumers dispatch with a type switch.
type Output interface {
	Type() OutputType
	sealedOutput()
}

// StreamOutput is captured stdout or stderr text.
type StreamOutput struct {
	Name string // "stdout" or "stderr"
	Text string
}

// DisplayDataOutput is a rich, mime-type keyed display payload.
type DisplayDataOutput struct {
	Data     *RawMap
	Metadata *RawMap
}

// ExecuteResultOutput is the value produced by evaluating the cell.
type ExecuteResultOutput struct {
	ExecutionCount int
	Data           *RawMap
	Metadata       *RawMap
}

// ErrorOutput records an execution failure. Name and Value map to the
// format's "ename" and "evalue" fields.
type ErrorOutput struct {
	Name      string
	Value     string
	Traceback []string
}

// Type implements Output.
func (*StreamOutput) Type() OutputType { return OutputStream }

// Type implements Output.
func (*DisplayDataOutput) Type() OutputType { return OutputDisplayData }

// Type implements Output.
func (*ExecuteResultOutput) Type() OutputType { return OutputExecuteResult }

// Type implements Output.
func (*ErrorOutput) Type() OutputType { return OutputError }

func (*StreamOutput) sealedOutput()        {}
func (*DisplayDataOutput) sealedOutput()   {}
func (*ExecuteResultOutput) sealedOutput() {}
func (*ErrorOutput) sealedOutput()         {}
