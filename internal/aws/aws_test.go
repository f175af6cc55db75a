package awsclient

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSecrets struct {
	mock.Mock
}

func (m *MockSecrets) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput,
	optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	args := m.Called(aws.ToString(params.SecretId))
	out, _ := args.Get(0).(*secretsmanager.GetSecretValueOutput)
	return out, args.Error(1)
}

func TestDatabasePassword(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{"plain", "hunter2", "hunter2"},
		{"rds document", `{"username":"mooover","password":"rotated"}`, "rotated"},
		{"json without password", `{"token":"x"}`, `{"token":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockSecrets)
			client.On("GetSecretValue", "mooover/db").
				Return(&secretsmanager.GetSecretValueOutput{SecretString: aws.String(tt.secret)}, nil)

			got, err := DatabasePassword(context.Background(), client, "mooover/db")

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			client.AssertExpectations(t)
		})
	}
}

func TestDatabasePassword_Errors(t *testing.T) {
	client := new(MockSecrets)
	client.On("GetSecretValue", "missing").
		Return(nil, &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "not found"})
	client.On("GetSecretValue", "binary").
		Return(&secretsmanager.GetSecretValueOutput{SecretBinary: []byte{1, 2}}, nil)

	_, err := DatabasePassword(context.Background(), client, "missing")
	assert.ErrorContains(t, err, "ResourceNotFoundException")

	_, err = DatabasePassword(context.Background(), client, "binary")
	assert.Error(t, err)
}

func TestWithPassword(t *testing.T) {
	got, err := WithPassword("postgres://mooover:old@db:5432/mooover?sslmode=disable", "n3w/p@ss")
	require.NoError(t, err)
	assert.Equal(t, "postgres://mooover:n3w%2Fp%40ss@db:5432/mooover?sslmode=disable", got)

	_, err = WithPassword("://bad", "x")
	assert.Error(t, err)
}
