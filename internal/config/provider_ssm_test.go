package config

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSSM struct {
	getParametersFn func(ctx context.Context, in *ssm.GetParametersInput) (*ssm.GetParametersOutput, error)
	calls           [][]string
}

func (m *mockSSM) GetParameters(ctx context.Context, in *ssm.GetParametersInput, _ ...func(*ssm.Options)) (*ssm.GetParametersOutput, error) {
	m.calls = append(m.calls, in.Names)
	return m.getParametersFn(ctx, in)
}

// echoParameters answers every requested name with "value-of-<name>".
func echoParameters(_ context.Context, in *ssm.GetParametersInput) (*ssm.GetParametersOutput, error) {
	out := &ssm.GetParametersOutput{}
	for _, name := range in.Names {
		out.Parameters = append(out.Parameters, ssmtypes.Parameter{
			Name:  aws.String(name),
			Value: aws.String("value-of-" + name),
		})
	}
	return out, nil
}

func TestSSMProvider_SatisfiesSecretProvider(t *testing.T) {
	var _ SecretProvider = (*SSMProvider)(nil)
}

func TestSSMProvider_EmptyKeys(t *testing.T) {
	mock := &mockSSM{getParametersFn: echoParameters}
	p := newSSMProviderWithClient("us-east-1", mock)

	got, err := p.GetParametersBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, mock.calls)
}

func TestSSMProvider_BatchesByTen(t *testing.T) {
	mock := &mockSSM{getParametersFn: echoParameters}
	p := newSSMProviderWithClient("us-east-1", mock)

	keys := make([]string, 23)
	for i := range keys {
		keys[i] = fmt.Sprintf("/dev/rootle/p%02d", i)
	}

	got, err := p.GetParametersBatch(context.Background(), keys)
	require.NoError(t, err)
	assert.Len(t, got, 23)
	assert.Equal(t, "value-of-/dev/rootle/p22", got["/dev/rootle/p22"])

	require.Len(t, mock.calls, 3)
	assert.Len(t, mock.calls[0], 10)
	assert.Len(t, mock.calls[1], 10)
	assert.Len(t, mock.calls[2], 3)
}

func TestSSMProvider_InvalidParameters(t *testing.T) {
	mock := &mockSSM{getParametersFn: func(_ context.Context, _ *ssm.GetParametersInput) (*ssm.GetParametersOutput, error) {
		return &ssm.GetParametersOutput{InvalidParameters: []string{"/dev/rootle/missing"}}, nil
	}}
	p := newSSMProviderWithClient("us-east-1", mock)

	_, err := p.GetParametersBatch(context.Background(), []string{"/dev/rootle/missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/dev/rootle/missing")
}

func TestSSMProvider_ClientError(t *testing.T) {
	boom := errors.New("throttled")
	mock := &mockSSM{getParametersFn: func(_ context.Context, _ *ssm.GetParametersInput) (*ssm.GetParametersOutput, error) {
		return nil, boom
	}}
	p := newSSMProviderWithClient("us-east-1", mock)

	_, err := p.GetParametersBatch(context.Background(), []string{"/a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestSSMProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := &mockSSM{getParametersFn: echoParameters}
	p := newSSMProviderWithClient("us-east-1", mock)

	_, err := p.GetParametersBatch(ctx, []string{"/a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, mock.calls)
}
