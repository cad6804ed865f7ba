package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		name    string
		cb      *tele.Callback
		unique  string
		payload string
	}{
		{name: "nil", cb: nil},
		{name: "encoded", cb: &tele.Callback{Data: Encode("todo", "BAC")}, unique: "todo", payload: "BAC"},
		{name: "encoded without payload", cb: &tele.Callback{Data: Encode("todo", "")}, unique: "todo"},
		{name: "payload with separator", cb: &tele.Callback{Data: "\ftodo|a|b"}, unique: "todo", payload: "a|b"},
		{name: "already unpacked", cb: &tele.Callback{Unique: "todo", Data: "High"}, unique: "todo", payload: "High"},
		{name: "raw data", cb: &tele.Callback{Data: "Bug"}, payload: "Bug"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, p := ParseCallbackData(tt.cb)
			assert.Equal(t, tt.unique, u)
			assert.Equal(t, tt.payload, p)
		})
	}
}
