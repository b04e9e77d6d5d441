package lambdaboot

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// ParameterAPI is the subset of the SSM client used here.
type ParameterAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, opts ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// LoadProfileARN returns the Data Automation profile ARN: the configured
// value when set, otherwise the value of the SSM parameter paramName.
func LoadProfileARN(ctx context.Context, client ParameterAPI, configured, paramName string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if paramName == "" {
		return "", fmt.Errorf("no profile ARN configured and no SSM parameter named")
	}

	ssmStart := time.Now()
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("read profile ARN from SSM parameter %s: %w", paramName, err)
	}
	if result.Parameter == nil || aws.ToString(result.Parameter.Value) == "" {
		return "", fmt.Errorf("SSM parameter %s is empty", paramName)
	}
	log.Debug().Str("param", paramName).Dur("elapsed", time.Since(ssmStart)).Msg("Data Automation profile ARN loaded from SSM")
	return aws.ToString(result.Parameter.Value), nil
}
