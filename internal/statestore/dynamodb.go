package statestore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
)

// item is the DynamoDB-attributevalue shape of one global: partition key
// session, sort key name.
type item struct {
	Session string  `dynamodbav:"session"`
	Name    string  `dynamodbav:"name"`
	Kind    string  `dynamodbav:"kind"`
	Bool    bool    `dynamodbav:"boolval"`
	Num     float64 `dynamodbav:"num"`
	Str     string  `dynamodbav:"str"`
}

// DynamoDB persists a Snapshot as one item per global in a table keyed by
// (session, name). Grounded directly on cmd/noxy-plugin-dynamodb/main.go's
// config.LoadDefaultConfig / dynamodb.NewFromConfig / PutItem / Scan calls.
type DynamoDB struct {
	client  *dynamodb.Client
	table   string
	strings interning
}

// OpenDynamoDB loads the default AWS config (environment, shared config
// file, or an attached role — whatever config.LoadDefaultConfig finds) and
// targets the named table.
func OpenDynamoDB(ctx context.Context, table string, strings interning) (*DynamoDB, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("statestore: load aws config: %w", err)
	}
	return &DynamoDB{
		client:  dynamodb.NewFromConfig(cfg),
		table:   table,
		strings: strings,
	}, nil
}

func (d *DynamoDB) Save(ctx context.Context, snap Snapshot) error {
	session := uuid.New().String()
	for name, v := range snap {
		if !Scalar(v) {
			continue
		}
		r, err := toRow(name, v)
		if err != nil {
			return err
		}
		it := item{Session: session, Name: r.name, Kind: r.kind, Bool: r.b, Num: r.num, Str: r.str}
		av, err := attributevalue.MarshalMap(it)
		if err != nil {
			return fmt.Errorf("statestore: marshal %q: %w", name, err)
		}
		if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(d.table),
			Item:      av,
		}); err != nil {
			return fmt.Errorf("statestore: put %q: %w", name, err)
		}
	}
	return nil
}

func (d *DynamoDB) Load(ctx context.Context) (Snapshot, error) {
	out, err := d.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(d.table),
	})
	if err != nil {
		return nil, fmt.Errorf("statestore: scan: %w", err)
	}

	var items []item
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("statestore: unmarshal items: %w", err)
	}

	// Keep only the rows of the session seen last in the Scan result. Scan
	// has no ordering guarantee, so when the table holds several sessions
	// this is not necessarily the most recently written one; with a single
	// session per table it is that session.
	var lastSession string
	for _, it := range items {
		lastSession = it.Session
	}

	snap := Snapshot{}
	for _, it := range items {
		if it.Session != lastSession {
			continue
		}
		r := row{name: it.Name, kind: it.Kind, b: it.Bool, num: it.Num, str: it.Str}
		snap[r.name] = fromRow(r, d.strings)
	}
	return snap, nil
}
