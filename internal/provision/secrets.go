package provision

import (
	"context"

	"github.com/sirupsen/logrus"

	"foundry/internal/sealbox"
)

// provisionSecrets fetches the repository public key once, then seals and
// uploads every secret concurrently. A key fetch failure is returned as a
// *PublicKeyError and no secret is attempted.
func (p *Provisioner) provisionSecrets(ctx context.Context, owner, repo string, secrets []Secret) (int, []SecretResult, error) {
	p.log.WithFields(logrus.Fields{"owner": owner, "repo": repo, "count": len(secrets)}).Info("creating repository secrets")

	key, err := p.api.GetRepoPublicKey(ctx, owner, repo)
	if err != nil {
		return 0, nil, &PublicKeyError{Err: err}
	}

	errs := make([]error, len(secrets))
	forEach(ctx, p.limit, secrets, func(ctx context.Context, i int, s Secret) {
		errs[i] = p.putSecret(ctx, owner, repo, key, s)
	})

	count := 0
	failed := []SecretResult{}
	for i, err := range errs {
		p.rec.Record(FeatureSecrets, err == nil)
		if err != nil {
			failed = append(failed, SecretResult{Secret: secrets[i].Name, Success: false, Error: errorMessage(err)})
			continue
		}
		count++
	}
	return count, failed, nil
}

func (p *Provisioner) putSecret(ctx context.Context, owner, repo string, key PublicKey, s Secret) error {
	log := p.log.WithField("secret", s.Name)

	sealed, err := sealbox.Seal(key.Key, s.Value)
	if err == nil {
		err = p.api.CreateOrUpdateRepoSecret(ctx, owner, repo, EncryptedSecret{
			Name:           s.Name,
			KeyID:          key.KeyID,
			EncryptedValue: sealed,
		})
	}
	if err != nil {
		log.WithError(err).Error("failed to create secret")
		return err
	}
	log.Info("created or updated secret")
	return nil
}
