package integration_tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/aquaoffice/tresorerie.go/controllers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type AccountTestSuite struct {
	TestSuite
}

func (suite *AccountTestSuite) SetupSuite() {
	suite.setupEcho()
}

func (suite *AccountTestSuite) TearDownTest() {
	assert.NoError(suite.T(), clearAll(suite.service))
}

func (suite *AccountTestSuite) TestCreateAccount() {
	account := suite.createAccountReq("Caisse principale", "cash")
	assert.NotZero(suite.T(), account.ID)
	assert.Equal(suite.T(), "Caisse principale", account.Designation)
	assert.Equal(suite.T(), "cash", account.Type)
	assert.Regexp(suite.T(), `^ACC-\d{5}$`, account.Reference)
	assert.Equal(suite.T(), "0.00", account.Balance.String())
	assert.Equal(suite.T(), int64(0), account.EntryCount)
}

func (suite *AccountTestSuite) TestCreateAccountValidation() {
	rec := suite.do(http.MethodPost, "/accounts", map[string]string{"type": "safe"})
	errResponse := suite.checkErrResponse(rec, http.StatusUnprocessableEntity)
	assert.Equal(suite.T(), "is required", errResponse.Fields["designation"])

	rec = suite.do(http.MethodPost, "/accounts", map[string]string{"designation": "Coffre", "type": "safe"})
	errResponse = suite.checkErrResponse(rec, http.StatusUnprocessableEntity)
	assert.Contains(suite.T(), errResponse.Fields, "type")
}

func (suite *AccountTestSuite) TestDuplicateReference() {
	body := map[string]string{"designation": "BNP", "type": "bank", "reference": "BNP-01"}
	rec := suite.do(http.MethodPost, "/accounts", body)
	assert.Equal(suite.T(), http.StatusCreated, rec.Code)
	rec = suite.do(http.MethodPost, "/accounts", body)
	suite.checkErrResponse(rec, http.StatusConflict)
}

func (suite *AccountTestSuite) TestListGetUpdateAccount() {
	cash := suite.createAccountReq("Caisse", "cash")
	bank := suite.createAccountReq("Banque", "bank")
	suite.recordEntryReq(bank.ID, entryBody("250.5", "CREDIT", "Apport"), http.StatusCreated)

	rec := suite.do(http.MethodGet, "/accounts", nil)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	accounts := []controllers.AccountResponse{}
	suite.decode(rec, &accounts)
	assert.Len(suite.T(), accounts, 2)
	assert.Equal(suite.T(), cash.ID, accounts[0].ID)
	assert.Equal(suite.T(), "250.50", accounts[1].Balance.String())
	assert.Equal(suite.T(), int64(1), accounts[1].EntryCount)

	rec = suite.do(http.MethodPut, fmt.Sprintf("/accounts/%d", cash.ID), map[string]string{"designation": "Caisse boutique"})
	assert.Equal(suite.T(), http.StatusOK, rec.Code, rec.Body.String())

	rec = suite.do(http.MethodGet, fmt.Sprintf("/accounts/%d", cash.ID), nil)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	account := &controllers.AccountResponse{}
	suite.decode(rec, account)
	assert.Equal(suite.T(), "Caisse boutique", account.Designation)
	assert.Equal(suite.T(), "cash", account.Type)
	assert.NotNil(suite.T(), account.UpdatedAt)

	rec = suite.do(http.MethodGet, "/accounts/999", nil)
	suite.checkErrResponse(rec, http.StatusNotFound)
	rec = suite.do(http.MethodGet, "/accounts/abc", nil)
	suite.checkErrResponse(rec, http.StatusBadRequest)
}

func (suite *AccountTestSuite) TestDeleteAccount() {
	empty := suite.createAccountReq("Caisse fermée", "cash")
	used := suite.createAccountReq("Caisse ouverte", "cash")
	suite.recordEntryReq(used.ID, entryBody("10", "CREDIT", "Fond de caisse"), http.StatusCreated)

	rec := suite.do(http.MethodDelete, fmt.Sprintf("/accounts/%d", used.ID), nil)
	suite.checkErrResponse(rec, http.StatusConflict)

	rec = suite.do(http.MethodDelete, fmt.Sprintf("/accounts/%d", empty.ID), nil)
	assert.Equal(suite.T(), http.StatusNoContent, rec.Code)
	rec = suite.do(http.MethodGet, fmt.Sprintf("/accounts/%d", empty.ID), nil)
	suite.checkErrResponse(rec, http.StatusNotFound)
}

func (suite *AccountTestSuite) TestWritesRequireAdminToken() {
	rec := suite.doWithToken(http.MethodPost, "/accounts", "wrong", map[string]string{"designation": "Caisse", "type": "cash"})
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)

	// reads stay open
	rec = suite.doWithToken(http.MethodGet, "/accounts", "", nil)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
}

func TestAccountSuite(t *testing.T) {
	suite.Run(t, new(AccountTestSuite))
}
