// Package schema has the shared models and enums for all parts of assetcache.
package schema
