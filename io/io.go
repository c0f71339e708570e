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

// Package io abstracts the file systems that data files live on. Readers
// need random access for footer and column-chunk reads, so File carries
// io.ReaderAt in addition to the usual fs.File methods. Implementations are
// selected by URI scheme through a pluggable registry.
package io

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"sync"
)

// ErrIONotFound is returned by LoadFS when no implementation is registered
// for a URI scheme.
var ErrIONotFound = errors.New("no file IO registered for scheme")

// IO is the minimum interface a file system must provide for reading.
type IO interface {
	// Open opens the named file for random-access reading.
	Open(name string) (File, error)
	// Remove deletes the named file.
	Remove(name string) error
}

// File is an opened file providing sequential and random-access reads.
type File interface {
	fs.File
	io.ReadSeekCloser
	io.ReaderAt
}

// FileWriter is a handle for writing a single new file. The file is not
// guaranteed to exist until Close returns nil.
type FileWriter interface {
	io.WriteCloser
}

// ReadFileIO is implemented by file systems that can slurp a whole file.
type ReadFileIO interface {
	IO

	ReadFile(name string) ([]byte, error)
}

// WriteFileIO is implemented by file systems that support creating files.
type WriteFileIO interface {
	IO

	Create(name string) (FileWriter, error)
	WriteFile(name string, content []byte) error
}

// SchemeFactory creates an IO implementation for a given URI and properties.
type SchemeFactory func(ctx context.Context, parsed *url.URL, props map[string]string) (IO, error)

var (
	regMutex sync.Mutex
	registry = map[string]SchemeFactory{}
)

// Register adds a scheme factory, replacing any existing registration.
func Register(scheme string, factory SchemeFactory) {
	if factory == nil {
		panic("io: Register factory is nil")
	}

	regMutex.Lock()
	defer regMutex.Unlock()
	registry[scheme] = factory
}

func lookup(scheme string) (SchemeFactory, bool) {
	regMutex.Lock()
	defer regMutex.Unlock()
	factory, ok := registry[scheme]

	return factory, ok
}

func init() {
	localFactory := func(context.Context, *url.URL, map[string]string) (IO, error) {
		return LocalFS{}, nil
	}
	Register("file", localFactory)
	Register("", localFactory)

	for _, scheme := range []string{"s3", "s3a", "s3n"} {
		Register(scheme, createS3FileIO)
	}
	Register("gs", createGCSFileIO)
	Register("abfs", createAzureFileIO)
	Register("abfss", createAzureFileIO)
}

// LoadFS infers a file system implementation from the location's URI
// scheme. An empty scheme or "file://" yields the local file system.
func LoadFS(ctx context.Context, props map[string]string, location string) (IO, error) {
	if location == "" {
		location = props["warehouse"]
	}

	parsed, err := url.Parse(location)
	if err != nil {
		return nil, err
	}

	factory, ok := lookup(parsed.Scheme)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIONotFound, parsed.Scheme)
	}

	return factory(ctx, parsed, props)
}
