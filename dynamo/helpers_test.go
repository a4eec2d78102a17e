package dynamo_test

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/trove/dynamo"
	"github.com/jacentio/trove/filter"
	"github.com/jacentio/trove/store"
)

// --- Test Entity Types ---

type Customer struct {
	store.Entity
	Name string `dynamodbav:"name"`
}

var added = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// customerItem builds the raw item for a stored customer.
func customerItem(id, name string, deleted bool) dynamo.Item {
	return dynamo.Item{
		"id":      &types.AttributeValueMemberS{Value: id},
		"added":   &types.AttributeValueMemberS{Value: filter.FormatTime(added)},
		"deleted": &types.AttributeValueMemberBOOL{Value: deleted},
		"name":    &types.AttributeValueMemberS{Value: name},
	}
}

// --- Fake DynamoDB client ---

// fakeAPI serves scripted pages and records every request. Pages are chained
// through a synthetic "page" LastEvaluatedKey.
type fakeAPI struct {
	mu sync.Mutex

	scans   []dynamodb.ScanInput
	queries []dynamodb.QueryInput
	puts    []dynamodb.PutItemInput

	// scanPages holds the pages returned per segment.
	scanPages map[int32][][]dynamo.Item

	// scanCounts holds the Count of each page for Select=COUNT scans.
	scanCounts []int32

	queryPages [][]dynamo.Item

	scanErr error
	putErr  error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{scanPages: make(map[int32][][]dynamo.Item)}
}

func pageIndex(key map[string]types.AttributeValue) int {
	if key == nil {
		return 0
	}
	n, ok := key["page"].(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	i, _ := strconv.Atoi(n.Value)
	return i
}

func nextKey(i, total int) map[string]types.AttributeValue {
	if i+1 >= total {
		return nil
	}
	return map[string]types.AttributeValue{
		"page": &types.AttributeValueMemberN{Value: strconv.Itoa(i + 1)},
	}
}

func (f *fakeAPI) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans = append(f.scans, *params)
	if f.scanErr != nil {
		return nil, f.scanErr
	}

	i := pageIndex(params.ExclusiveStartKey)
	if params.Select == types.SelectCount {
		if i >= len(f.scanCounts) {
			return &dynamodb.ScanOutput{}, nil
		}
		return &dynamodb.ScanOutput{
			Count:            f.scanCounts[i],
			LastEvaluatedKey: nextKey(i, len(f.scanCounts)),
		}, nil
	}

	pages := f.scanPages[aws.ToInt32(params.Segment)]
	if i >= len(pages) {
		return &dynamodb.ScanOutput{}, nil
	}
	return &dynamodb.ScanOutput{
		Items:            pages[i],
		Count:            int32(len(pages[i])),
		LastEvaluatedKey: nextKey(i, len(pages)),
	}, nil
}

func (f *fakeAPI) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, *params)

	i := pageIndex(params.ExclusiveStartKey)
	if i >= len(f.queryPages) {
		return &dynamodb.QueryOutput{}, nil
	}
	return &dynamodb.QueryOutput{
		Items:            f.queryPages[i],
		Count:            int32(len(f.queryPages[i])),
		LastEvaluatedKey: nextKey(i, len(f.queryPages)),
	}, nil
}

func (f *fakeAPI) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, *params)
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &dynamodb.PutItemOutput{}, nil
}

// newTestBackend creates a backend over a fake client with the "test_" prefix.
func newTestBackend(api *fakeAPI, segments int) *dynamo.Backend {
	cfg := dynamo.DefaultConfig()
	cfg.TablePrefix = "test_"
	cfg.Segments = segments
	return dynamo.New(api, cfg, nil)
}

// drain decodes every document of cur.
func drain(ctx context.Context, cur store.Cursor) ([]*Customer, error) {
	defer cur.Close(ctx)
	var out []*Customer
	for cur.Next(ctx) {
		var c *Customer
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, cur.Err()
}
