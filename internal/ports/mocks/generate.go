//go:generate mockgen -source=../message_repository.go -destination=./mock_message_repository.go -package=mocks
//go:generate mockgen -source=../archive_cache.go      -destination=./mock_archive_cache.go      -package=mocks

package mocks
