package config

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDatabaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@host:5432/db", "postgresql://u:p@host:5432/db"},
		{"postgresql://u:p@host:5432/db", "postgresql://u:p@host:5432/db"},
		{"sqlite:///dev.db", "sqlite:///dev.db"},
		{"mypostgres://x", "mypostgres://x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDatabaseURL(tt.in), tt.in)
	}
}

func TestGetDatabaseURL_Default(t *testing.T) {
	assert.Equal(t, DefaultDatabaseURL, GetDatabaseURL(map[string]string{}))
	assert.Equal(t, "postgresql://h/db", GetDatabaseURL(map[string]string{DatabaseURL: "postgres://h/db"}))
}

func TestGetters(t *testing.T) {
	cfg := map[string]string{
		"PORT":    "9000",
		"BAD_INT": "nine",
		"FLAG":    "true",
		"EMPTY":   "",
	}
	assert.Equal(t, 9000, GetInt(cfg, "PORT", 8080))
	assert.Equal(t, 8080, GetInt(cfg, "BAD_INT", 8080))
	assert.Equal(t, int64(DefaultMaxContentLength), GetInt64(cfg, MaxContentLength, DefaultMaxContentLength))
	assert.True(t, GetBool(cfg, "FLAG", false))
	assert.Equal(t, "fallback", GetString(cfg, "EMPTY", "fallback"))
	assert.Equal(t, "fallback", GetString(nil, "PORT", "fallback"))
}

type fakeSSM struct {
	pages [][]types.Parameter
	calls int
	err   error
}

func (f *fakeSSM) GetParametersByPath(_ context.Context, in *ssm.GetParametersByPathInput, _ ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[f.calls]
	f.calls++
	out := &ssm.GetParametersByPathOutput{Parameters: page}
	if f.calls < len(f.pages) {
		out.NextToken = aws.String("next")
	}
	return out, nil
}

func TestLoadSSM(t *testing.T) {
	client := &fakeSSM{pages: [][]types.Parameter{
		{{Name: aws.String("/hundred-days/ADMIN_PASSWORD"), Value: aws.String("s3cret")}},
		{{Name: aws.String("/hundred-days/SECRET_KEY"), Value: aws.String("signing")}},
	}}
	cfg := map[string]string{AdminPassword: "from-env"}

	n, err := LoadSSM(context.Background(), client, "/hundred-days", cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "s3cret", cfg[AdminPassword])
	assert.Equal(t, "signing", cfg[SecretKey])
}

func TestLoadSSM_Error(t *testing.T) {
	client := &fakeSSM{err: errors.New("access denied")}
	_, err := LoadSSM(context.Background(), client, "/hundred-days", map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestLoadSSM_EmptyPath(t *testing.T) {
	n, err := LoadSSM(context.Background(), &fakeSSM{}, "", map[string]string{})
	require.NoError(t, err)
	assert.Zero(t, n)
}
