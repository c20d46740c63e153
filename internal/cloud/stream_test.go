// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEReader_ReadEvent(t *testing.T) {
	input := ": keep-alive\n\n" +
		"event: message\ndata: {\"a\":1}\n\n" +
		"data: line1\ndata: line2\r\n\r\n" +
		"id: 7\ndata: [DONE]\n"

	r := NewSSEReader(strings.NewReader(input))

	typ, data, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "message", typ)
	assert.Equal(t, `{"a":1}`, string(data))

	_, data, err = r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2", string(data))

	_, data, err = r.ReadEvent()
	require.NoError(t, err, "data before EOF is returned")
	assert.Equal(t, "[DONE]", string(data))

	_, _, err = r.ReadEvent()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSSEReader_TruncatedLine(t *testing.T) {
	r := NewSSEReader(strings.NewReader("data: {\"choi"))
	_, _, err := r.ReadEvent()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestProcessStream(t *testing.T) {
	chunk := func(content string) string {
		return `data: {"choices":[{"delta":{"content":"` + content + `"},"finish_reason":null}]}` + "\n\n"
	}

	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{
			name: "done marker",
			body: chunk("Hi") + chunk(" there") + "data: [DONE]\n\n",
			want: "Hi there",
		},
		{
			name: "finish reason ends stream",
			body: chunk("Hi") + `data: {"choices":[{"delta":{},"finish_reason":"stop"}]}` + "\n\n" + chunk("ignored"),
			want: "Hi",
		},
		{
			name: "malformed chunk skipped",
			body: chunk("a") + "data: {not json\n\n" + chunk("b") + "data: [DONE]\n\n",
			want: "ab",
		},
		{
			name:    "error event",
			body:    chunk("a") + `data: {"error":{"message":"overloaded","type":"server_error"}}` + "\n\n",
			want:    "a",
			wantErr: true,
		},
		{
			name:    "closed without done",
			body:    chunk("a"),
			want:    "a",
			wantErr: true,
		},
	}

	c := New("k")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			err := c.processStream(context.Background(), strings.NewReader(tt.body), func(d string) { out.WriteString(d) })
			assert.Equal(t, tt.want, out.String())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessStream_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New("k").processStream(ctx, strings.NewReader("data: [DONE]\n\n"), func(string) {})
	assert.ErrorIs(t, err, context.Canceled)
}
