package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/imagerelay/internal/config"
)

// fakeAPI is a simple fake implementing ssmAPI for tests.
type fakeAPI struct {
	getOut *ssm.GetParameterOutput
	getErr error
	gotIn  *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.gotIn = in
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("p"), Value: strPtr("v"),
	}}}
	client, err := New(api)
	require.NoError(t, err)

	v, err := client.GetParameter(context.Background(), "p")
	require.NoError(t, err)
	require.Equal(t, "v", v)
	require.True(t, *api.gotIn.WithDecryption, "secure strings must be decrypted")
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p")}}}
	client, err := New(api)
	require.NoError(t, err)

	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "missing value")
}

func TestGetParameter_ApiError(t *testing.T) {
	client, err := New(&fakeAPI{getErr: errors.New("boom")})
	require.NoError(t, err)

	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "boom")
}

func TestGetParameter_EmptyName(t *testing.T) {
	client, err := New(&fakeAPI{})
	require.NoError(t, err)

	_, err = client.GetParameter(context.Background(), "  ")
	require.ErrorContains(t, err, "required")
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.ErrorContains(t, err, "must not be nil")
}

// mapGetter serves parameters from a map and records lookups.
type mapGetter struct {
	values map[string]string
	calls  []string
}

func (m *mapGetter) GetParameter(_ context.Context, name string) (string, error) {
	m.calls = append(m.calls, name)
	v, ok := m.values[name]
	if !ok {
		return "", errors.New("parameter not found: " + name)
	}
	return v, nil
}

func TestResolveSecrets_FillsOnlyEmpty(t *testing.T) {
	cfg := config.Defaults()
	cfg.Line.ChannelSecret = "from-file"

	g := &mapGetter{values: map[string]string{
		"/relay/prod/line-channel-access-token": "line-token\n",
		"/relay/prod/store-token":               "gh-token",
	}}

	err := ResolveSecrets(context.Background(), g, "/relay/prod/", cfg)
	require.NoError(t, err)

	require.Equal(t, "from-file", cfg.Line.ChannelSecret)
	require.Equal(t, "line-token", cfg.Line.ChannelAccessToken)
	require.Equal(t, "gh-token", cfg.Store.Token)
	require.NotContains(t, g.calls, "/relay/prod/line-channel-secret")
}

func TestResolveSecrets_PropagatesLookupError(t *testing.T) {
	cfg := config.Defaults()
	err := ResolveSecrets(context.Background(), &mapGetter{}, "/relay", cfg)
	require.ErrorContains(t, err, "line-channel-secret")
}

func TestResolveSecrets_EmptyPrefix(t *testing.T) {
	err := ResolveSecrets(context.Background(), &mapGetter{}, " ", config.Defaults())
	require.Error(t, err)
}
