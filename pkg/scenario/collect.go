package scenario

import (
	"fmt"
	"io"
	"strings"

	"fellowship/pkg/llm"
)

// Collect drains one turn's chunk stream, accumulating visible text in
// arrival order and recording the names of any tool invocations observed.
// Text deltas are echoed to w as they arrive so the reply streams to the
// console; when logToolCalls is set, tool invocations are echoed too.
// Fragments carrying neither text nor a tool call are skipped. An error
// chunk aborts collection and is returned with whatever text accumulated.
func Collect(stream <-chan llm.StreamChunk, w io.Writer, logToolCalls bool) (text string, toolCalls []string, err error) {
	var sb strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			return strings.TrimSpace(sb.String()), toolCalls, chunk.Err
		}
		switch chunk.Kind {
		case llm.ChunkText:
			sb.WriteString(chunk.Content)
			if w != nil {
				fmt.Fprint(w, chunk.Content)
			}
		case llm.ChunkToolCall:
			if chunk.ToolCall == nil || chunk.ToolCall.Name == "" {
				continue
			}
			toolCalls = append(toolCalls, chunk.ToolCall.Name)
			if logToolCalls && w != nil {
				fmt.Fprintf(w, "\nTool calls: [%s]\n", chunk.ToolCall.Name)
			}
		case llm.ChunkDone, llm.ChunkOther:
			// Done carries nothing to accumulate; unrecognized fragments
			// are ignored rather than treated as an error.
		}
	}
	return strings.TrimSpace(sb.String()), toolCalls, nil
}
