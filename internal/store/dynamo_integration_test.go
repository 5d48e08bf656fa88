//go:build integration

// Integration tests for the DynamoDB store, run against DynamoDB Local.
package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testTable = "transcode-jobs-test"

var (
	testClient    *dynamodb.Client
	testContainer testcontainers.Container
)

// TestMain sets up and tears down the DynamoDB Local container.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "amazon/dynamodb-local:2.5.2",
			ExposedPorts: []string{"8000/tcp"},
			WaitingFor:   wait.ForListeningPort("8000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start DynamoDB Local container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")),
	)
	if err != nil {
		log.Fatalf("Failed to load AWS configuration: %v", err)
	}
	endpoint := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())
	testClient = dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	if err := createTestTable(ctx); err != nil {
		log.Fatalf("Failed to create test table: %v", err)
	}

	code := m.Run()

	_ = testContainer.Terminate(ctx)
	os.Exit(code)
}

// createTestTable mirrors the production schema: objectId partition key
// with a GSI on jobId projecting objectId.
func createTestTable(ctx context.Context) error {
	_, err := testClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(testTable),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("objectId"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("jobId"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("objectId"), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(JobIDIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("jobId"), KeyType: types.KeyTypeHash},
				},
				Projection: &types.Projection{
					ProjectionType:   types.ProjectionTypeInclude,
					NonKeyAttributes: []string{"status", "updatedAt"},
				},
			},
		},
	})
	if err != nil {
		return err
	}

	waiter := dynamodb.NewTableExistsWaiter(testClient)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(testTable)}, 60*time.Second)
}

func testStore() *Dynamo {
	return NewDynamo(testClient, testTable, nil)
}

func TestIntegrationRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	d := testStore()

	rec := JobRecord{
		ObjectID:  "lifecycle/clip.mp4",
		JobID:     "job-lifecycle",
		Status:    StatusProcessing,
		UpdatedAt: FormatTime(time.Now()),
	}
	require.NoError(t, d.Put(ctx, rec))

	got, err := d.GetByObjectID(ctx, rec.ObjectID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	matches, err := d.QueryByJobID(ctx, rec.JobID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, rec.ObjectID, matches[0].ObjectID)

	at := time.Now().Add(time.Minute)
	require.NoError(t, d.UpdateStatus(ctx, rec.ObjectID, StatusComplete, at))

	got, err = d.GetByObjectID(ctx, rec.ObjectID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, FormatTime(at), got.UpdatedAt)
	assert.Equal(t, rec.JobID, got.JobID, "partial update leaves other fields untouched")
}

func TestIntegrationPutIsCreateOnly(t *testing.T) {
	ctx := context.Background()
	d := testStore()

	rec := JobRecord{ObjectID: "dup/clip.mp4", JobID: "job-dup-1", Status: StatusProcessing, UpdatedAt: FormatTime(time.Now())}
	require.NoError(t, d.Put(ctx, rec))

	dup := rec
	dup.JobID = "job-dup-2"
	err := d.Put(ctx, dup)
	require.ErrorIs(t, err, ErrAlreadyExists)

	got, err := d.GetByObjectID(ctx, rec.ObjectID)
	require.NoError(t, err)
	assert.Equal(t, "job-dup-1", got.JobID, "first record stays authoritative")
}

func TestIntegrationUpdateStatusGuards(t *testing.T) {
	ctx := context.Background()
	d := testStore()

	err := d.UpdateStatus(ctx, "guards/missing.mp4", StatusComplete, time.Now())
	require.ErrorIs(t, err, ErrNotFound)

	rec := JobRecord{ObjectID: "guards/clip.mp4", JobID: "job-guards", Status: StatusProcessing, UpdatedAt: FormatTime(time.Now())}
	require.NoError(t, d.Put(ctx, rec))

	first := time.Now()
	require.NoError(t, d.UpdateStatus(ctx, rec.ObjectID, StatusError, first))

	// Identical terminal re-apply is an idempotent timestamp refresh.
	second := first.Add(time.Minute)
	require.NoError(t, d.UpdateStatus(ctx, rec.ObjectID, StatusError, second))

	got, err := d.GetByObjectID(ctx, rec.ObjectID)
	require.NoError(t, err)
	assert.Equal(t, StatusError, got.Status)
	assert.Equal(t, FormatTime(second), got.UpdatedAt)

	// A different terminal value is rejected.
	err = d.UpdateStatus(ctx, rec.ObjectID, StatusComplete, second.Add(time.Minute))
	require.ErrorIs(t, err, ErrTerminalConflict)
}

func TestIntegrationQueryByJobIDMiss(t *testing.T) {
	matches, err := testStore().QueryByJobID(context.Background(), "job-nothing")
	require.NoError(t, err)
	assert.Empty(t, matches)
}
