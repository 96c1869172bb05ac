package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"

	"github.com/mufasai/server-ai/internal/config"
)

type fakeAPI struct {
	out *ssm.GetParameterOutput
	err error
	in  *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.in = in
	return f.out, f.err
}

func strPtr(s string) *string { return &s }

func TestGetParameter_DecryptsSecureString(t *testing.T) {
	api := &fakeAPI{out: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("/muzai/key"), Value: strPtr("sk-or-v1-xyz"), Type: types.ParameterTypeSecureString,
	}}}
	client, err := New(api)
	require.NoError(t, err)

	v, err := client.GetParameter(context.Background(), " /muzai/key ")
	require.NoError(t, err)
	require.Equal(t, "sk-or-v1-xyz", v)
	require.Equal(t, "/muzai/key", *api.in.Name)
	require.True(t, *api.in.WithDecryption)
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeAPI{out: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p")}}}
	client, err := New(api)
	require.NoError(t, err)

	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "missing value")
}

func TestGetParameter_APIError(t *testing.T) {
	boom := errors.New("boom")
	client, err := New(&fakeAPI{err: boom})
	require.NoError(t, err)

	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorIs(t, err, boom)
}

func TestGetParameter_EmptyName(t *testing.T) {
	client, err := New(&fakeAPI{})
	require.NoError(t, err)

	_, err = client.GetParameter(context.Background(), "  ")
	require.ErrorContains(t, err, "required")
}

func TestGetParameter_ClientNotInitialized(t *testing.T) {
	_, err := (&Client{}).GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "not initialized")
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.ErrorContains(t, err, "must not be nil")
}

func TestClient_ResolvesConfigAPIKey(t *testing.T) {
	api := &fakeAPI{out: &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: strPtr("from-ssm")}}}
	client, err := New(api)
	require.NoError(t, err)

	cfg := config.Config{Proxy: config.ProxyConfig{APIKeyParam: "/muzai/key"}}
	require.NoError(t, config.ResolveAPIKey(context.Background(), &cfg, client))
	require.Equal(t, "from-ssm", cfg.Proxy.OpenRouterAPIKey)
}
