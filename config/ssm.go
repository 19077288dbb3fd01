package config

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// LoadSSM merges every parameter stored under parameterPath into cfg, keyed
// by the last path segment. Parameters win over values already in cfg so that
// secrets such as ADMIN_PASSWORD can live outside the process environment.
func LoadSSM(ctx context.Context, client ssm.GetParametersByPathAPIClient, parameterPath string, cfg map[string]string) (int, error) {
	if cfg == nil {
		return 0, fmt.Errorf("config map is nil")
	}
	if parameterPath == "" {
		return 0, nil
	}

	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(parameterPath),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})

	loaded := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return loaded, fmt.Errorf("failed to read SSM parameters under %s: %w", parameterPath, err)
		}
		for _, param := range page.Parameters {
			name := strings.TrimSuffix(aws.ToString(param.Name), "/")
			if name == "" {
				continue
			}
			cfg[path.Base(name)] = aws.ToString(param.Value)
			loaded++
		}
	}
	return loaded, nil
}
