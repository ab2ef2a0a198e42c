// Package redis shares live sessions between replicas through Redis.
package redis
