// Licensed under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package utils holds context plumbing shared across packages.
package utils

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

type awsctxkey struct{}

// WithAwsConfig attaches a pre-built AWS configuration to the context. File
// IO for s3:// locations uses it instead of deriving a configuration from
// table properties, so one authenticated session can serve many tables.
func WithAwsConfig(ctx context.Context, cfg *aws.Config) context.Context {
	return context.WithValue(ctx, awsctxkey{}, cfg)
}

// GetAwsConfig returns the AWS configuration attached to the context, or nil.
func GetAwsConfig(ctx context.Context) *aws.Config {
	if v := ctx.Value(awsctxkey{}); v != nil {
		return v.(*aws.Config)
	}

	return nil
}
