// Package diskx provides a uniform file storage abstraction over named
// disks. A disk is backed either by a directory on the local filesystem or
// by an S3-compatible bucket, and both honor the same Storage contract.
//
// The root package holds the contract, the error kinds, the configuration
// types and the instrumentation decorator. Backends live in adapters/local
// and adapters/s3, and the registry package builds the configured disks:
//
//	import (
//	    "github.com/gostratum/diskx"
//	    "github.com/gostratum/diskx/registry"
//	)
//
// Use registry.Module() with fx, or registry.Build for programmatic setups.
//
// Configuration is read from the "storage" section:
//
//	storage:
//	  default: local
//	  disks:
//	    local:
//	      driver: local
//	      options:
//	        root: /var/lib/app/files
//	        url: https://files.example.com
//	    media:
//	      driver: s3
//	      options:
//	        bucket: app-media
//	        region: eu-west-1
//	        prefix: uploads
package diskx
