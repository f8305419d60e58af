package transaction

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	mockPg "github.com/muhammadchandra19/settlement/pkg/postgresql/mock"
	"github.com/stretchr/testify/assert"
)

func TestLockAccount_RequiresTransaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pg := mockPg.NewMockPostgreSQLClient(ctrl)
	err := NewTransactor(pg).LockAccount(context.Background(), "alice", "JPY")
	assert.Error(t, err)
}
