package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/juststeveking/sagedeploy/internal/alarm"
	"github.com/juststeveking/sagedeploy/internal/logging"
	"go.uber.org/zap"
)

func main() {
	logger, err := logging.New("info", false)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	args, err := alarm.ParseArgs()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(args.Region))
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}

	handler := alarm.NewHandler(args, sns.NewFromConfig(cfg), logger)
	lambda.Start(handler.Handle)
}
