package service

import (
	"context"

	"github.com/d60-Lab/unifeed/internal/model"
	"github.com/d60-Lab/unifeed/internal/remote"
	"github.com/d60-Lab/unifeed/internal/repository"
	"github.com/d60-Lab/unifeed/pkg/secret"
)

// AccountService 管理已登录账号；token 封存后才落盘。
// 同时是 action.CredentialSource 的实现。
type AccountService struct {
	accounts repository.AccountRepository
	box      *secret.Box
}

func NewAccountService(accounts repository.AccountRepository, box *secret.Box) *AccountService {
	return &AccountService{accounts: accounts, box: box}
}

// Link 绑定一个账号（OAuth 换 token 在本层之外完成）
func (s *AccountService) Link(ctx context.Context, platform model.Platform, domain, remoteID, handle, accessToken string) (*model.Account, error) {
	sealed, err := s.box.Seal(accessToken)
	if err != nil {
		return nil, err
	}
	a := &model.Account{
		Platform:    platform,
		Domain:      domain,
		RemoteID:    remoteID,
		Handle:      handle,
		SealedToken: sealed,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AccountService) List(ctx context.Context) ([]*model.Account, error) {
	return s.accounts.List(ctx)
}

func (s *AccountService) Unlink(ctx context.Context, id string) error {
	return s.accounts.Delete(ctx, id)
}

// Credentials 解封账号凭据
func (s *AccountService) Credentials(ctx context.Context, account *model.Account) (remote.Credentials, error) {
	token, err := s.box.Open(account.SealedToken)
	if err != nil {
		return remote.Credentials{}, err
	}
	return remote.Credentials{AccessToken: token}, nil
}
