package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel(t *testing.T) {
	assert.Equal(t, "module.gm-slots", Channel("gm-slots"))
}

func TestEncodeDecode(t *testing.T) {
	data, err := Encode(Message{
		Kind:               KindRun,
		SlotName:           "Heal",
		Arguments:          map[string]any{"actorId": "hero", "amount": 3},
		RequestingIdentity: "alice",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"RUN","slotName":"Heal","arguments":{"actorId":"hero","amount":3},"requestingIdentity":"alice"}`, string(data))

	m, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "Heal", m.SlotName)
	assert.Equal(t, json.Number("3"), m.Arguments["amount"])
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `RUN Heal`},
		{"array", `[1,2]`},
		{"missing kind", `{"slotName":"Heal","requestingIdentity":"alice"}`},
		{"empty kind", `{"kind":""}`},
		{"kind not string", `{"kind":7}`},
		{"run without slot", `{"kind":"RUN","requestingIdentity":"alice"}`},
		{"run without identity", `{"kind":"RUN","slotName":"Heal"}`},
		{"run with bad arguments", `{"kind":"RUN","slotName":"Heal","requestingIdentity":"a","arguments":[1]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestDecode_OtherKindsPassValidation(t *testing.T) {
	m, err := Decode([]byte(`{"kind":"PING","anything":true}`))
	require.NoError(t, err)
	assert.Equal(t, "PING", m.Kind)
}
