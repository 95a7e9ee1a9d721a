// Package dynamotest provides an in-memory DynamoDB table for tests.
package dynamotest

import (
	"errors"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// Fake stores items per table, keyed by the string attribute KeyAttr. Only the
// item-level calls used in this module are implemented; anything else panics
// through the nil embedded interface.
type Fake struct {
	dynamodbiface.DynamoDBAPI

	KeyAttr string
	// Err, when set, is returned by every call.
	Err error
	// PageSize splits scans into several pages when positive.
	PageSize int

	mu     sync.Mutex
	tables map[string]map[string]map[string]*dynamodb.AttributeValue
}

func New(keyAttr string) *Fake {
	return &Fake{KeyAttr: keyAttr, tables: map[string]map[string]map[string]*dynamodb.AttributeValue{}}
}

func (f *Fake) key(item map[string]*dynamodb.AttributeValue) (string, error) {
	v, ok := item[f.KeyAttr]
	if !ok || v.S == nil {
		return "", errors.New("missing key attribute " + f.KeyAttr)
	}
	return *v.S, nil
}

func (f *Fake) table(name *string) map[string]map[string]*dynamodb.AttributeValue {
	t, ok := f.tables[aws.StringValue(name)]
	if !ok {
		t = map[string]map[string]*dynamodb.AttributeValue{}
		f.tables[aws.StringValue(name)] = t
	}
	return t
}

// Len returns the number of items in a table.
func (f *Fake) Len(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table])
}

func (f *Fake) PutItemWithContext(_ aws.Context, in *dynamodb.PutItemInput, _ ...request.Option) (*dynamodb.PutItemOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k, err := f.key(in.Item)
	if err != nil {
		return nil, err
	}
	f.table(in.TableName)[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *Fake) GetItemWithContext(_ aws.Context, in *dynamodb.GetItemInput, _ ...request.Option) (*dynamodb.GetItemOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k, err := f.key(in.Key)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemOutput{Item: f.table(in.TableName)[k]}, nil
}

func (f *Fake) DeleteItemWithContext(_ aws.Context, in *dynamodb.DeleteItemInput, _ ...request.Option) (*dynamodb.DeleteItemOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k, err := f.key(in.Key)
	if err != nil {
		return nil, err
	}
	delete(f.table(in.TableName), k)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *Fake) ScanPagesWithContext(_ aws.Context, in *dynamodb.ScanInput, fn func(*dynamodb.ScanOutput, bool) bool, _ ...request.Option) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	t := f.table(in.TableName)
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	items := make([]map[string]*dynamodb.AttributeValue, 0, len(keys))
	for _, k := range keys {
		items = append(items, t[k])
	}
	f.mu.Unlock()

	size := f.PageSize
	if size <= 0 || size > len(items) {
		size = len(items)
	}
	if size == 0 {
		fn(&dynamodb.ScanOutput{}, true)
		return nil
	}
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		if !fn(&dynamodb.ScanOutput{Items: items[start:end]}, end == len(items)) {
			break
		}
	}
	return nil
}
