package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5511987654321", NormalizePhone("(11) 98765-4321"))
	assert.Equal(t, "5511987654321", NormalizePhone("011 98765 4321"))
	assert.Equal(t, "5511987654321", NormalizePhone("+55 11 98765-4321"))
}

func TestSendTextMessage(t *testing.T) {
	var got SendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dev/send/message", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "u", user)
		assert.Equal(t, "p", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true,"data":{"message_id":"m1","status":"sent"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "u", "p", "/dev/")
	require.NoError(t, c.SendTextMessage(context.Background(), "(11) 98765-4321", "hello"))

	assert.Equal(t, "5511987654321@s.whatsapp.net", got.Phone)
	assert.Equal(t, "hello", got.Message)
}

func TestSendTextMessage_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "", "", "").SendTextMessage(context.Background(), "11987654321", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSendTextMessage_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"not on whatsapp"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "", "", "").SendTextMessage(context.Background(), "11987654321", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not on whatsapp")
}
