package memory

import (
	"bank_manager/internal/repository"
)

var (
	_ repository.AccountRepository = (*AccountRepository)(nil)
)
