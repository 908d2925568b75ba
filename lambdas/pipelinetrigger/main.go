package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/juststeveking/sagedeploy/internal/logging"
	"github.com/juststeveking/sagedeploy/internal/pipeline"
	"github.com/juststeveking/sagedeploy/internal/sagemaker"
	"go.uber.org/zap"
)

func main() {
	logger, err := logging.New("info", false)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	args, err := pipeline.ParseArgs()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(args.Region))
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}

	var mailer pipeline.Mailer
	if args.EmailSource != "" && args.EmailRecipient != "" {
		mailer = sesv2.NewFromConfig(cfg)
	}

	handler := pipeline.NewHandler(args, sagemaker.NewFromConfig(cfg, logger), mailer, logger)
	lambda.Start(handler.Handle)
}
