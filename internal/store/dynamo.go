package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// JobIDIndex is the name of the GSI on jobId.
const JobIDIndex = "jobId"

// Sentinel errors for distinguishable store failures. Everything else
// coming out of the store is a transient dependency failure and should
// be surfaced to the delivery substrate for redelivery.
var (
	// ErrNotFound means no record exists for the given key.
	ErrNotFound = errors.New("job record not found")

	// ErrAlreadyExists means a create hit an existing record for the
	// same objectId (duplicate ingestion delivery).
	ErrAlreadyExists = errors.New("job record already exists")

	// ErrTerminalConflict means a status update was rejected because the
	// record already carries a different terminal status.
	ErrTerminalConflict = errors.New("job record already terminal")
)

// Store is the contract the handlers share. Reads by primary key are
// strongly consistent; QueryByJobID goes through the GSI and may lag
// behind a just-completed Put.
type Store interface {
	Put(ctx context.Context, rec JobRecord) error
	GetByObjectID(ctx context.Context, objectID string) (JobRecord, error)
	QueryByJobID(ctx context.Context, jobID string) ([]JobRecord, error)
	UpdateStatus(ctx context.Context, objectID string, status Status, at time.Time) error
}

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Dynamo implements Store against a single DynamoDB table.
type Dynamo struct {
	api    DynamoAPI
	table  string
	logger *slog.Logger
}

// Compile-time check that Dynamo implements Store.
var _ Store = (*Dynamo)(nil)

// NewDynamo creates a store bound to the given table. The client is
// constructed once per process and reused across invocations.
func NewDynamo(api DynamoAPI, table string, logger *slog.Logger) *Dynamo {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dynamo{api: api, table: table, logger: logger}
}

// Put creates the record for rec.ObjectID. The write is conditional on
// the key not existing yet, so a redelivered "object created" event
// cannot overwrite the record written by the first delivery; callers see
// ErrAlreadyExists instead.
func (d *Dynamo) Put(ctx context.Context, rec JobRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("objectId"))).
		Build()
	if err != nil {
		return fmt.Errorf("build condition: %w", err)
	}

	_, err = d.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(d.table),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("put %s: %w", rec.ObjectID, ErrAlreadyExists)
		}
		return fmt.Errorf("put %s: %w", rec.ObjectID, err)
	}
	d.logger.Debug("record created", "object_id", rec.ObjectID, "job_id", rec.JobID)
	return nil
}

// GetByObjectID reads a record by primary key with a strongly consistent
// read.
func (d *Dynamo) GetByObjectID(ctx context.Context, objectID string) (JobRecord, error) {
	out, err := d.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            recordKey(objectID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return JobRecord{}, fmt.Errorf("get %s: %w", objectID, err)
	}
	if len(out.Item) == 0 {
		return JobRecord{}, fmt.Errorf("get %s: %w", objectID, ErrNotFound)
	}

	var rec JobRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return JobRecord{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}

// QueryByJobID resolves records through the jobId GSI. The index is
// eventually consistent, so a record written just before the query may
// not be visible yet; callers must treat an empty result as a possible
// lag, not proof of absence. Zero, one, or more records may match.
func (d *Dynamo) QueryByJobID(ctx context.Context, jobID string) ([]JobRecord, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("jobId").Equal(expression.Value(jobID))).
		WithProjection(expression.NamesList(expression.Name("objectId"), expression.Name("jobId"), expression.Name("status"))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	out, err := d.api.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(d.table),
		IndexName:                 aws.String(JobIDIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("query jobId %s: %w", jobID, err)
	}

	recs := make([]JobRecord, 0, len(out.Items))
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &recs); err != nil {
		return nil, fmt.Errorf("unmarshal records: %w", err)
	}
	return recs, nil
}

// UpdateStatus partial-updates exactly status and updatedAt. The update
// is conditional: the record must exist and its current status must be
// either processing or already the requested terminal value, which makes
// re-applying the same terminal status an idempotent timestamp refresh
// while a transition between different terminal values is rejected with
// ErrTerminalConflict.
func (d *Dynamo) UpdateStatus(ctx context.Context, objectID string, status Status, at time.Time) error {
	cond := expression.AttributeExists(expression.Name("objectId")).
		And(expression.Name("status").Equal(expression.Value(StatusProcessing)).
			Or(expression.Name("status").Equal(expression.Value(status))))
	upd := expression.
		Set(expression.Name("status"), expression.Value(status)).
		Set(expression.Name("updatedAt"), expression.Value(FormatTime(at)))

	expr, err := expression.NewBuilder().WithCondition(cond).WithUpdate(upd).Build()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	_, err = d.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(d.table),
		Key:                                 recordKey(objectID),
		UpdateExpression:                    expr.Update(),
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// The old item rides along on the rejection, so a missing
			// record and a terminal conflict are distinguishable.
			if len(ccf.Item) == 0 {
				return fmt.Errorf("update %s: %w", objectID, ErrNotFound)
			}
			return fmt.Errorf("update %s: %w", objectID, ErrTerminalConflict)
		}
		return fmt.Errorf("update %s: %w", objectID, err)
	}
	d.logger.Debug("record updated", "object_id", objectID, "status", status)
	return nil
}

// List scans up to limit records. This is an operational read path for
// the CLI, not something the handlers use.
func (d *Dynamo) List(ctx context.Context, limit int32) ([]JobRecord, error) {
	in := &dynamodb.ScanInput{TableName: aws.String(d.table)}
	if limit > 0 {
		in.Limit = aws.Int32(limit)
	}

	out, err := d.api.Scan(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	recs := make([]JobRecord, 0, len(out.Items))
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &recs); err != nil {
		return nil, fmt.Errorf("unmarshal records: %w", err)
	}
	return recs, nil
}

func recordKey(objectID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"objectId": &types.AttributeValueMemberS{Value: objectID},
	}
}
