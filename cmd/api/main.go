package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/goliatone/go-commerce-backend/internal/logging"
	"github.com/goliatone/go-commerce-backend/pkg/di"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	container, err := di.LoadContainer(ctx)
	if err != nil {
		logger, lerr := logging.New(logging.Config{})
		if lerr != nil {
			logger = zap.NewExample()
		}
		logger.Fatal("startup failed", zap.Error(err))
	}

	container.Logger().Info("starting lambda handler")
	lambda.StartWithOptions(container.Handler().Handle,
		lambda.WithEnableSIGTERM(func() {
			if err := container.Close(); err != nil {
				container.Logger().Error("shutdown failed", zap.Error(err))
			}
		}),
	)
}
