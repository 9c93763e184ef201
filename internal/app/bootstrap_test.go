package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/weaviate/weaviate/entities/models"

	"deskmate/internal/app"
	"deskmate/internal/config"
	"deskmate/internal/vector"
)

type statefulSchemaClient struct {
	callCount int
	failUntil int
}

func (m *statefulSchemaClient) ClassExists(ctx context.Context, className string) (bool, error) {
	m.callCount++
	if m.callCount <= m.failUntil {
		return false, errors.New("schema error")
	}
	return true, nil
}

func (m *statefulSchemaClient) CreateClass(ctx context.Context, class *models.Class) error {
	return nil
}

func (m *statefulSchemaClient) GetClass(ctx context.Context, className string) (*models.Class, error) {
	return &models.Class{Class: vector.ClassName, Properties: []*models.Property{
		{Name: "content"}, {Name: "chunkId"}, {Name: "source"}, {Name: "seq"},
	}}, nil
}

func (m *statefulSchemaClient) AddProperty(ctx context.Context, className string, property *models.Property) error {
	return nil
}

func TestEnsureSchemaWithRetry_Success(t *testing.T) {
	client := &statefulSchemaClient{}
	err := app.EnsureSchemaWithRetry(context.Background(), client, 1, time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, 1, client.callCount)
}

func TestEnsureSchemaWithRetry_Retries(t *testing.T) {
	client := &statefulSchemaClient{failUntil: 2}
	err := app.EnsureSchemaWithRetry(context.Background(), client, 5, time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, 3, client.callCount)
}

func TestEnsureSchemaWithRetry_Fail(t *testing.T) {
	client := &statefulSchemaClient{failUntil: 100}
	err := app.EnsureSchemaWithRetry(context.Background(), client, 3, time.Millisecond)
	assert.Error(t, err)
	assert.Equal(t, 3, client.callCount)
}

func TestBootstrap_ConfigurationError(t *testing.T) {
	cfg := &config.Config{
		DBHost: "invalid-host",
	}
	deps, err := app.Bootstrap(context.Background(), cfg)
	assert.Error(t, err)
	assert.Nil(t, deps)
}
