package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"caravan_server/models"
	"caravan_server/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type tableSchema struct {
	pk string
	sk string
}

var fakeSchemas = map[string]tableSchema{
	models.GroupsTable:        {pk: "groupId"},
	models.MembersTable:       {pk: "groupId", sk: "userId"},
	models.CommandsTable:      {pk: "groupId", sk: "createdAt"},
	models.NotificationsTable: {pk: "recipientId", sk: "notificationId"},
	models.FindRequestsTable:  {pk: "requestId"},
	models.WaypointsTable:     {pk: "groupId", sk: "waypointId"},
}

// fakeDynamo is an in-memory DynamoAPI for service tests. It understands the
// simple equality key conditions and SET update expressions the services
// actually issue.
type fakeDynamo struct {
	mu       sync.Mutex
	tables   map[string]map[string]map[string]types.AttributeValue
	failures map[string]error // keyed "Op:Table", e.g. "Put:MemberNotifications"
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		tables:   make(map[string]map[string]map[string]types.AttributeValue),
		failures: make(map[string]error),
	}
}

func (f *fakeDynamo) failOn(op, table string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op+":"+table] = err
}

func (f *fakeDynamo) clearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = make(map[string]error)
}

func (f *fakeDynamo) checkFailure(op, table string) error {
	return f.failures[op+":"+table]
}

func (f *fakeDynamo) itemKey(table string, item map[string]types.AttributeValue) string {
	schema := fakeSchemas[table]
	key := utils.ExtractString(item, schema.pk)
	if schema.sk != "" {
		key += "|" + utils.ExtractString(item, schema.sk)
	}
	return key
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (f *fakeDynamo) PutItem(ctx context.Context, tableName string, item interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkFailure("Put", tableName); err != nil {
		return err
	}

	marshaled, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}
	if f.tables[tableName] == nil {
		f.tables[tableName] = make(map[string]map[string]types.AttributeValue)
	}
	f.tables[tableName][f.itemKey(tableName, marshaled)] = marshaled
	return nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkFailure("Get", tableName); err != nil {
		return nil, err
	}

	item, ok := f.tables[tableName][f.itemKey(tableName, key)]
	if !ok {
		return nil, nil
	}
	return copyItem(item), nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, tableName string, updateExpression string, key map[string]types.AttributeValue, expressionAttributeValues map[string]types.AttributeValue, expressionAttributeNames map[string]string) (map[string]types.AttributeValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkFailure("Update", tableName); err != nil {
		return nil, err
	}

	id := f.itemKey(tableName, key)
	item, ok := f.tables[tableName][id]
	if !ok {
		item = copyItem(key)
		if f.tables[tableName] == nil {
			f.tables[tableName] = make(map[string]map[string]types.AttributeValue)
		}
		f.tables[tableName][id] = item
	}

	// Only "SET a = :v, #b = :w" shapes are issued by the services.
	expr := strings.TrimPrefix(updateExpression, "SET ")
	for _, assignment := range strings.Split(expr, ",") {
		parts := strings.SplitN(assignment, "=", 2)
		if len(parts) != 2 {
			continue
		}
		field := strings.TrimSpace(parts[0])
		valueRef := strings.TrimSpace(parts[1])
		if strings.HasPrefix(field, "#") {
			field = expressionAttributeNames[field]
		}
		if value, ok := expressionAttributeValues[valueRef]; ok {
			item[field] = value
		}
	}
	return copyItem(item), nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkFailure("Delete", tableName); err != nil {
		return err
	}
	delete(f.tables[tableName], f.itemKey(tableName, key))
	return nil
}

// match applies the single-equality key conditions the services issue:
// "field = :v" or "#n = :v".
func (f *fakeDynamo) match(tableName, keyCondition string, values map[string]types.AttributeValue, names map[string]string) []map[string]types.AttributeValue {
	parts := strings.SplitN(keyCondition, "=", 2)
	if len(parts) != 2 {
		return nil
	}
	field := strings.TrimSpace(parts[0])
	if strings.HasPrefix(field, "#") {
		field = names[field]
	}
	want := utils.ExtractString(values, strings.TrimSpace(parts[1]))

	var out []map[string]types.AttributeValue
	for _, item := range f.tables[tableName] {
		if utils.ExtractString(item, field) == want {
			out = append(out, copyItem(item))
		}
	}
	return out
}

func (f *fakeDynamo) QueryItems(ctx context.Context, tableName string, keyConditionExpression string, expressionAttributeValues map[string]types.AttributeValue, expressionAttributeNames map[string]string, limit int32) ([]map[string]types.AttributeValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkFailure("Query", tableName); err != nil {
		return nil, err
	}

	items := f.match(tableName, keyConditionExpression, expressionAttributeValues, expressionAttributeNames)
	if limit > 0 && int32(len(items)) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeDynamo) QueryItemsWithIndex(ctx context.Context, tableName, indexName, keyConditionExpression string, expressionAttributeValues map[string]types.AttributeValue, expressionAttributeNames map[string]string, limit int32) ([]map[string]types.AttributeValue, error) {
	return f.QueryItems(ctx, tableName, keyConditionExpression, expressionAttributeValues, expressionAttributeNames, limit)
}

func (f *fakeDynamo) QueryItemsWithOptions(ctx context.Context, tableName, keyConditionExpression string, expressionAttributeValues map[string]types.AttributeValue, expressionAttributeNames map[string]string, limit int32, latestFirst bool) ([]map[string]types.AttributeValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkFailure("Query", tableName); err != nil {
		return nil, err
	}

	items := f.match(tableName, keyConditionExpression, expressionAttributeValues, expressionAttributeNames)
	sk := fakeSchemas[tableName].sk
	sort.SliceStable(items, func(i, j int) bool {
		a := utils.ExtractString(items[i], sk)
		b := utils.ExtractString(items[j], sk)
		if latestFirst {
			return a > b
		}
		return a < b
	})
	if limit > 0 && int32(len(items)) > limit {
		items = items[:limit]
	}
	return items, nil
}

// countItems reports how many records a table holds.
func (f *fakeDynamo) countItems(tableName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[tableName])
}
