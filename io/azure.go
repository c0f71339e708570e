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

package io

import (
	"context"
	"net/url"

	"gocloud.dev/blob/azureblob"
)

// Constants for Azure configuration options
const (
	AzureContainerName = "azure.container.name"
	AzureAccountName   = "azure.account.name"
	AzureSasToken      = "azure.sas.token"
	AzureStorageDomain = "azure.storage.domain"
	AzureProtocol      = "azure.protocol"
)

func parseAzureOptions(props map[string]string) *azureblob.ServiceURLOptions {
	opts := azureblob.NewDefaultServiceURLOptions()
	if account := props[AzureAccountName]; account != "" {
		opts.AccountName = account
	}
	if token := props[AzureSasToken]; token != "" {
		opts.SASToken = token
	}
	if domain := props[AzureStorageDomain]; domain != "" {
		opts.StorageDomain = domain
	}
	if protocol := props[AzureProtocol]; protocol != "" {
		opts.Protocol = protocol
	}

	return opts
}

func createAzureFileIO(ctx context.Context, parsed *url.URL, props map[string]string) (IO, error) {
	opts := parseAzureOptions(props)
	serviceURL, err := azureblob.NewServiceURL(opts)
	if err != nil {
		return nil, err
	}

	container := props[AzureContainerName]
	if container == "" {
		container = parsed.Host
	}

	client, err := azureblob.NewDefaultClient(serviceURL, azureblob.ContainerName(container))
	if err != nil {
		return nil, err
	}

	bucket, err := azureblob.OpenBucket(ctx, client, nil)
	if err != nil {
		return nil, err
	}

	return createBlobFileIO(parsed, bucket), nil
}
