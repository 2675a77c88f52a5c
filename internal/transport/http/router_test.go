package httptransport

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	certservice "credreg/internal/cert/service"
	"credreg/internal/cert/store/certtype"
	"credreg/internal/cert/store/credential"
	"credreg/internal/cert/store/expiry"
	"credreg/internal/chain"
	didservice "credreg/internal/did/service"
	"credreg/internal/did/store/identity"
	orgservice "credreg/internal/org/service"
	orgstore "credreg/internal/org/store/org"
	"credreg/pkg/domain"
	dErrors "credreg/pkg/domain-errors"
	"credreg/pkg/testutil"
)

const signingKey = "test-signing-key"

type RouterSuite struct {
	suite.Suite
	router http.Handler
	clock  *chain.Counter
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	orgs := orgservice.New(orgstore.NewInMemory())
	certs := certservice.New(certtype.NewInMemory(), credential.NewInMemory(), expiry.NewInMemory(), orgs)
	dids := didservice.New(identity.NewInMemory())

	s.clock = chain.NewCounter()
	s.clock.Set(100, 1_000_000)
	s.router = NewRouter(RouterConfig{
		Orgs:       orgs,
		Certs:      certs,
		DIDs:       dids,
		Clock:      s.clock,
		SigningKey: []byte(signingKey),
	})
}

func (s *RouterSuite) token(subject domain.AccountID) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   string(subject),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(signingKey))
	s.Require().NoError(err)
	return signed
}

func (s *RouterSuite) TestHealthAndMetricsAreOpen() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/metrics"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
}

func (s *RouterSuite) TestAuthRequired() {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/orgs", map[string]string{"name": "Acme University"}))
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/orgs", map[string]string{"name": "Acme University"})
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}

func (s *RouterSuite) TestOrganizationLifecycle() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/orgs", map[string]string{"name": "Acme University"})
	req.Header.Set("Authorization", "Bearer "+s.token("acct-admin"))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	created := testutil.UnmarshalResponse[struct {
		ID    domain.OrgID     `json:"id"`
		Admin domain.AccountID `json:"admin"`
	}](s.T(), rr)
	s.Equal(domain.OrgID(1), created.ID)
	s.Equal(domain.AccountID("acct-admin"), created.Admin)

	// Suspend as a stranger is forbidden.
	req = testutil.NewJSONRequest(s.T(), http.MethodPost, "/orgs/1/suspend", nil)
	req.Header.Set("Authorization", "Bearer "+s.token("acct-stranger"))
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeNotAuthorized))

	// Suspend as the admin succeeds.
	req = testutil.NewJSONRequest(s.T(), http.MethodPost, "/orgs/1/suspend", nil)
	req.Header.Set("Authorization", "Bearer "+s.token("acct-admin"))
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	req = testutil.NewRequest(s.T(), http.MethodGet, "/orgs/1")
	req.Header.Set("Authorization", "Bearer "+s.token("acct-admin"))
	rr = testutil.DoRequest(s.router, req)
	org := testutil.UnmarshalResponse[struct {
		Suspended bool `json:"suspended"`
	}](s.T(), rr)
	s.True(org.Suspended)
}

func (s *RouterSuite) TestCredentialFlow() {
	authed := func(method, path string, body any, caller string) *http.Request {
		req := testutil.NewJSONRequest(s.T(), method, path, body)
		req.Header.Set("Authorization", "Bearer "+s.token(domain.AccountID(caller)))
		return req
	}

	rr := testutil.DoRequest(s.router, authed(http.MethodPost, "/orgs", map[string]string{"name": "Acme University"}, "acct-admin"))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	rr = testutil.DoRequest(s.router, authed(http.MethodPost, "/orgs/1/cert-types", map[string]string{"name": "Diploma"}, "acct-admin"))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	// Issue with a base64 signature.
	rr = testutil.DoRequest(s.router, authed(http.MethodPost, "/cert-types/1/credentials", map[string]any{
		"owner":     "acct-bob",
		"signature": "c2ln",
	}, "acct-admin"))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	// Second issuance for the same owner conflicts.
	rr = testutil.DoRequest(s.router, authed(http.MethodPost, "/cert-types/1/credentials", map[string]any{
		"owner":     "acct-bob",
		"signature": "c2ln",
	}, "acct-admin"))
	testutil.AssertStatus(s.T(), rr, http.StatusConflict)
	testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeAlreadyExists))

	// The holder destroys their own credential.
	rr = testutil.DoRequest(s.router, authed(http.MethodPost, "/cert-types/1/credentials/acct-bob/destroy", nil, "acct-bob"))
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	// Revoking a destroyed credential is an invalid transition.
	rr = testutil.DoRequest(s.router, authed(http.MethodPost, "/cert-types/1/credentials/acct-bob/revoke", nil, "acct-admin"))
	testutil.AssertStatus(s.T(), rr, http.StatusConflict)
	testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeInvalidState))
}

func (s *RouterSuite) TestDIDAuthorizeQuery() {
	authed := func(method, path string, body any, caller string) *http.Request {
		req := testutil.NewJSONRequest(s.T(), method, path, body)
		req.Header.Set("Authorization", "Bearer "+s.token(domain.AccountID(caller)))
		return req
	}

	rr := testutil.DoRequest(s.router, authed(http.MethodPost, "/identities/did-alpha/delegates", map[string]any{
		"type":     "signer",
		"delegate": "acct-bob",
		"validity": 50,
	}, "did-alpha"))
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	rr = testutil.DoRequest(s.router, authed(http.MethodGet, "/identities/did-alpha/authorize?account=acct-bob&purpose=signer", nil, "acct-anyone"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	answer := testutil.UnmarshalResponse[struct {
		Authorized bool `json:"authorized"`
	}](s.T(), rr)
	s.True(answer.Authorized)

	// Advance past the grant's expiry height; the same query flips.
	s.clock.Set(151, 2_000_000)
	rr = testutil.DoRequest(s.router, authed(http.MethodGet, "/identities/did-alpha/authorize?account=acct-bob&purpose=signer", nil, "acct-anyone"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	answer = testutil.UnmarshalResponse[struct {
		Authorized bool `json:"authorized"`
	}](s.T(), rr)
	s.False(answer.Authorized)
}
