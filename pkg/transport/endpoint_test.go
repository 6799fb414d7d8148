package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		eps     Endpoints
		want    string
		wantErr bool
	}{
		{name: "production", env: "production", eps: DefaultEndpoints(), want: DefaultProductionURL},
		{name: "production is case insensitive", env: " Production ", eps: DefaultEndpoints(), want: DefaultProductionURL},
		{name: "development", env: "development", eps: DefaultEndpoints(), want: DefaultDevelopmentURL},
		{name: "anything else is local", env: "staging", eps: DefaultEndpoints(), want: DefaultDevelopmentURL},
		{name: "empty endpoints fall back to defaults", env: "", eps: Endpoints{}, want: DefaultDevelopmentURL},
		{name: "override wins", env: "production", eps: Endpoints{Production: DefaultProductionURL, Override: "ws://127.0.0.1:9000/chat"}, want: "ws://127.0.0.1:9000/chat"},
		{name: "http scheme rejected", env: "", eps: Endpoints{Override: "http://localhost:8765"}, wantErr: true},
		{name: "missing host rejected", env: "", eps: Endpoints{Override: "ws:///path"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveEndpoint(tt.env, tt.eps)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
