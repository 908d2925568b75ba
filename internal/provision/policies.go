package provision

import (
	"encoding/json"
	"fmt"
)

// Managed policies attached to every trigger role
var DefaultPolicyARNs = []string{
	"arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole",
	"arn:aws:iam::aws:policy/AmazonSageMakerFullAccess",
	"arn:aws:iam::aws:policy/AmazonEventBridgeFullAccess",
}

// Managed policies additionally attached when the function publishes alarms
var NotifierPolicyARNs = []string{
	"arn:aws:iam::aws:policy/AmazonSNSFullAccess",
	"arn:aws:iam::aws:policy/CloudWatchFullAccess",
}

type policyDocument struct {
	Version   string      `json:"Version"`
	Statement []statement `json:"Statement"`
}

type statement struct {
	Effect    string            `json:"Effect"`
	Principal map[string]string `json:"Principal,omitempty"`
	Action    any               `json:"Action"`
	Resource  any               `json:"Resource,omitempty"`
}

func (d policyDocument) String() string {
	data, err := json.Marshal(d)
	if err != nil {
		// Only static string fields are marshalled
		panic(err)
	}
	return string(data)
}

// lambdaTrustPolicy lets the function service assume the role
func lambdaTrustPolicy() string {
	return policyDocument{
		Version: "2012-10-17",
		Statement: []statement{{
			Effect:    "Allow",
			Principal: map[string]string{"Service": "lambda.amazonaws.com"},
			Action:    "sts:AssumeRole",
		}},
	}.String()
}

// snsPublishPolicy lets a function write its own logs and publish to topicARN
func snsPublishPolicy(region, account, function, topicARN string) string {
	logGroup := fmt.Sprintf("arn:aws:logs:%s:%s:log-group:/aws/lambda/%s", region, account, function)
	return policyDocument{
		Version: "2012-10-17",
		Statement: []statement{
			{Effect: "Allow", Action: "logs:CreateLogGroup", Resource: logGroup},
			{Effect: "Allow", Action: []string{"logs:CreateLogStream", "logs:PutLogEvents"}, Resource: []string{logGroup + ":*"}},
			{Effect: "Allow", Action: "sns:Publish", Resource: topicARN},
		},
	}.String()
}

// BucketARN returns the ARN of an S3 bucket
func BucketARN(bucket string) string {
	return "arn:aws:s3:::" + bucket
}
