package dynamo

import (
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
)

var (
	clientInstance *dynamodb.DynamoDB
	once           sync.Once
)

// GetDynamoDBClient returns the process-wide client. The region of the first
// call wins.
func GetDynamoDBClient(region string) *dynamodb.DynamoDB {
	once.Do(func() {
		sess := session.Must(session.NewSession(&aws.Config{Region: aws.String(region)}))

		clientInstance = dynamodb.New(sess)
	})

	return clientInstance
}
