package llm

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/cynqhq/cynq/pkg/models"
)

// toolCallAccumulator assembles tool calls that arrive as incremental
// deltas. OpenAI-style streams send the call ID and function name in the
// first delta for an index and the JSON arguments as fragments across the
// following deltas, with multiple calls in flight tracked by index.
type toolCallAccumulator struct {
	calls map[int]*partialToolCall
}

type partialToolCall struct {
	id   string
	name string
	args []byte
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{calls: make(map[int]*partialToolCall)}
}

// add folds one delta into the call at the given index. ID and name keep
// their first non-empty value; argument fragments are appended in arrival
// order.
func (a *toolCallAccumulator) add(index int, id, name, argsFragment string) {
	call := a.calls[index]
	if call == nil {
		call = &partialToolCall{}
		a.calls[index] = call
	}
	if call.id == "" && id != "" {
		call.id = id
	}
	if call.name == "" && name != "" {
		call.name = name
	}
	if argsFragment != "" {
		call.args = append(call.args, argsFragment...)
	}
}

// complete returns the finished tool calls in index order and resets the
// accumulator. Entries that never received a name are dropped; a missing ID
// is synthesized from the timestamp and index, since some gateways stream
// the function name without ever assigning a call ID.
func (a *toolCallAccumulator) complete() []models.ToolCall {
	if len(a.calls) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(a.calls))
	for i := range a.calls {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	result := make([]models.ToolCall, 0, len(indexes))
	for _, i := range indexes {
		call := a.calls[i]
		if call.name == "" {
			continue
		}
		id := call.id
		if id == "" {
			id = fmt.Sprintf("tool_%d_%d", time.Now().UnixMilli(), i)
		}
		result = append(result, models.ToolCall{
			ID:        id,
			Name:      call.name,
			Arguments: json.RawMessage(call.args),
		})
	}
	a.calls = make(map[int]*partialToolCall)
	return result
}
