package httputil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{
			name:       "socket peer with port",
			remoteAddr: "192.168.1.1:12345",
			want:       "192.168.1.1",
		},
		{
			name:       "ipv6 socket peer",
			remoteAddr: "[::1]:12345",
			want:       "::1",
		},
		{
			name:       "socket peer without port",
			remoteAddr: "192.168.1.1",
			want:       "192.168.1.1",
		},
		{
			name:       "forwarded-for ignored without trust",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4"},
			want:       "10.0.0.1",
		},
		{
			name:       "forwarded-for single hop",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4"},
			trustProxy: true,
			want:       "1.2.3.4",
		},
		{
			name:       "forwarded-for chain keeps the first hop",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.2, 10.0.0.3"},
			trustProxy: true,
			want:       "1.2.3.4",
		},
		{
			name:       "real-ip fallback",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "5.6.7.8"},
			trustProxy: true,
			want:       "5.6.7.8",
		},
		{
			name:       "forwarded-for wins over real-ip",
			remoteAddr: "10.0.0.1:1234",
			headers: map[string]string{
				"X-Forwarded-For": "1.2.3.4",
				"X-Real-IP":       "5.6.7.8",
			},
			trustProxy: true,
			want:       "1.2.3.4",
		},
		{
			name:       "blank forwarded entry falls back to real-ip",
			remoteAddr: "10.0.0.1:1234",
			headers: map[string]string{
				"X-Forwarded-For": " , 10.0.0.2",
				"X-Real-IP":       "5.6.7.8",
			},
			trustProxy: true,
			want:       "5.6.7.8",
		},
		{
			name:       "no headers with trust falls back to peer",
			remoteAddr: "10.0.0.1:1234",
			trustProxy: true,
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Request{RemoteAddr: tt.remoteAddr, Header: http.Header{}}
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r, tt.trustProxy))
		})
	}
}
