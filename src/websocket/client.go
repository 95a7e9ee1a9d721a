package websocket

import (
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi"
)

var (
	apiGatewayClient *apigatewaymanagementapi.ApiGatewayManagementApi
	once             sync.Once
)

// GetApiGWClient returns the management API client for the websocket stage at
// endpoint. The arguments of the first call win.
func GetApiGWClient(endpoint, region string) *apigatewaymanagementapi.ApiGatewayManagementApi {
	once.Do(func() {
		sess := session.Must(session.NewSession(&aws.Config{Region: aws.String(region)}))
		apiGatewayClient = apigatewaymanagementapi.New(sess, aws.NewConfig().WithEndpoint(endpoint))
	})

	return apiGatewayClient
}
