package carvestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMinio_RequiresBucket(t *testing.T) {
	_, err := NewMinio(MinioConfig{Endpoint: "localhost:9000"})
	require.Error(t, err)
}

func TestNewMinio_DefaultsRegion(t *testing.T) {
	store, err := NewMinio(MinioConfig{Endpoint: "localhost:9000", Bucket: "evidence"})
	require.NoError(t, err)
	require.Equal(t, "us-east-1", store.region)
}
