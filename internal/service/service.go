package service

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/address-book/internal/backup"
	"gitlab.com/dirk.krummacker/address-book/internal/logging"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
	"gitlab.com/dirk.krummacker/address-book/internal/policy"
	"gitlab.com/dirk.krummacker/address-book/internal/search"
	"gitlab.com/dirk.krummacker/address-book/internal/store"
	api "gitlab.com/dirk.krummacker/address-book/pkg/model"
	"go.uber.org/zap"
)

// Service answers the REST API calls of the address book.
type Service struct {
	store          *store.Store
	codec          *backup.Codec
	logger         *zap.Logger
	deleteAllScope store.DeleteScope
}

// New returns a service that keeps contacts in the store and backups in the codec's directory.
// The delete scope decides whether deleting all contacts affects only the caller's contacts or
// those of every user.
func New(contacts *store.Store, codec *backup.Codec, logger *zap.Logger, deleteAllScope store.DeleteScope) *Service {
	return &Service{
		store:          contacts,
		codec:          codec,
		logger:         logger,
		deleteAllScope: deleteAllScope,
	}
}

// SetupHttpRouter initializes the REST API router and registers all endpoints. Every endpoint
// except the health check and user registration requires HTTP basic authentication.
func (s *Service) SetupHttpRouter(requestLogging bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestID())
	if requestLogging {
		router.Use(logging.RequestLogger(s.logger))
	} else {
		s.logger.Info("Turning off HTTP request logging.")
	}
	router.GET("/health", s.health)
	router.POST("/users", s.registerUser)

	authorized := router.Group("", s.authenticate)
	authorized.GET("/contacts", s.listContacts)
	authorized.POST("/contacts", s.createContact)
	authorized.DELETE("/contacts", s.deleteAllContacts)
	authorized.GET("/contacts/:id", s.findContactByID)
	authorized.PUT("/contacts/:id", s.updateContactByID)
	authorized.DELETE("/contacts/:id", s.deleteContactByID)
	authorized.GET("/search", s.searchContacts)
	authorized.POST("/backup", s.exportContacts)
	authorized.POST("/import", s.importContacts)
	return router
}

// health responds with OK as soon as the service accepts requests.
//
// Example REST API call:
//
//	> curl http://localhost:8080/health
func (s *Service) health(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, gin.H{"status": "ok"})
}

// authenticate checks the basic authentication credentials against the users table and stores
// the username in the context.
func (s *Service) authenticate(c *gin.Context) {
	username, password, ok := c.Request.BasicAuth()
	if ok {
		valid, err := s.store.Authenticate(c.Request.Context(), username, password)
		if err != nil {
			s.respondError(c, err, nil)
			return
		}
		if valid {
			c.Set(gin.AuthUserKey, username)
			c.Next()
			return
		}
	}
	c.Header("WWW-Authenticate", `Basic realm="address book"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
}

// caller returns the name of the authenticated user.
func caller(c *gin.Context) string {
	return c.GetString(gin.AuthUserKey)
}

// registerUser creates a new user who can then manage their own contacts.
//
// Example REST API call:
//
//	> curl http://localhost:8080/users --request "POST" --include --header "Content-Type: application/json" --data '{"username": "ada", "password": "analytical"}'
func (s *Service) registerUser(c *gin.Context) {
	var user api.User
	if err := c.ShouldBindJSON(&user); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	err := s.store.CreateUser(c.Request.Context(), model.Credentials{Username: user.Username, Password: user.Password})
	if err != nil {
		s.respondError(c, err, gin.H{"username": user.Username})
		return
	}
	c.IndentedJSON(http.StatusCreated, gin.H{"username": user.Username})
}

// listContacts responds with the contacts of the caller as JSON, in the order they were created.
//
// Example REST API call:
//
//	> curl --user ada:analytical http://localhost:8080/contacts
func (s *Service) listContacts(c *gin.Context) {
	contacts, err := s.store.List(c.Request.Context(), caller(c))
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	c.IndentedJSON(http.StatusOK, contacts)
}

// createContact registers the contact specified in the request's JSON for the caller. It responds
// with the full contact data including the newly assigned id. Invalid values and phone numbers
// that already exist are answered with the submitted values and the reason of the rejection.
//
// Example REST API call:
//
//	> curl --user ada:analytical http://localhost:8080/contacts --request "POST" --include --header "Content-Type: application/json" --data '{"name": "Hans Wurst", "phone_number": "0815", "email": "hans@wurst.de"}'
func (s *Service) createContact(c *gin.Context) {
	var submitted api.Contact
	if err := c.ShouldBindJSON(&submitted); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	fields := model.Fields{
		Name:        deref(submitted.Name),
		PhoneNumber: deref(submitted.PhoneNumber),
		Email:       deref(submitted.Email),
		Notes:       submitted.Notes,
	}
	contact, err := s.store.Create(c.Request.Context(), fields, caller(c))
	if err != nil {
		s.respondError(c, err, submitted)
		return
	}
	c.IndentedJSON(http.StatusCreated, contact)
}

// findContactByID locates the contact whose ID value matches the id parameter of the request URL,
// then returns that contact as a response. Only the owner may see a contact.
//
// Example REST API call:
//
//	> curl --user ada:analytical http://localhost:8080/contacts/56
func (s *Service) findContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	contact, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	if !policy.IsOwner(contact, caller(c)) {
		s.respondError(c, store.ErrForbidden, nil)
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}

// updateContactByID updates the contact whose ID value matches the id parameter of the request
// URL, updates the values specified in the JSON (and only those), and finally responds with the
// new version of the contact.
//
// Example REST API calls:
//
//	> curl --user ada:analytical http://localhost:8080/contacts/56 --request "PUT" --include --header "Content-Type: application/json" --data '{"phone_number": "81970"}'
//	> curl --user ada:analytical http://localhost:8080/contacts/56 --request "PUT" --include --header "Content-Type: application/json" --data '{"notes": "moved to Prague"}'
func (s *Service) updateContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var submitted api.Contact
	if err := c.ShouldBindJSON(&submitted); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	patch := model.Patch{
		Name:        submitted.Name,
		PhoneNumber: submitted.PhoneNumber,
		Email:       submitted.Email,
		Notes:       submitted.Notes,
	}
	contact, err := s.store.Update(c.Request.Context(), id, patch, caller(c))
	if err != nil {
		s.respondError(c, err, submitted)
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}

// deleteContactByID deletes the contact whose ID value matches the id parameter of the request URL
// from the database. Only the owner may delete a contact.
//
// Example REST API call:
//
//	> curl --user ada:analytical http://localhost:8080/contacts/56 --request "DELETE"
func (s *Service) deleteContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.store.Delete(c.Request.Context(), id, caller(c)); err != nil {
		s.respondError(c, err, nil)
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"message": "contact deleted"})
}

// deleteAllContacts deletes the contacts of the caller, or of all users if the service has been
// configured that way, and responds with the number of deleted contacts.
//
// Example REST API call:
//
//	> curl --user ada:analytical http://localhost:8080/contacts --request "DELETE"
func (s *Service) deleteAllContacts(c *gin.Context) {
	deleted, err := s.store.DeleteAll(c.Request.Context(), caller(c), s.deleteAllScope)
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	s.logger.Info("deleted all contacts", zap.String("user", caller(c)),
		zap.String("scope", string(s.deleteAllScope)), zap.Int64("deleted", deleted))
	c.IndentedJSON(http.StatusOK, api.DeleteAllResponse{Deleted: deleted})
}

// searchContacts responds with the caller's contacts whose name, phone number, email or notes are
// exactly equal to the URL parameter 'query'. An empty list is returned if nothing matches.
//
// Example REST API call:
//
//	> curl --user ada:analytical "http://localhost:8080/search?query=ada@example.com"
func (s *Service) searchContacts(c *gin.Context) {
	contacts, err := search.Search(c.Request.Context(), s.store, c.Query("query"), search.ScopeOwner, caller(c))
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	c.IndentedJSON(http.StatusOK, contacts)
}

// exportContacts writes the caller's contacts to a backup file. Without a file name, the default
// backup file is written.
//
// Example REST API call:
//
//	> curl --user ada:analytical http://localhost:8080/backup --request "POST" --header "Content-Type: application/json" --data '{"file_name": "friends"}'
func (s *Service) exportContacts(c *gin.Context) {
	request, ok := bindBackupRequest(c)
	if !ok {
		return
	}
	contacts, err := s.store.List(c.Request.Context(), caller(c))
	if err != nil {
		s.respondError(c, err, nil)
		return
	}
	filename, err := s.codec.Export(contacts, request.FileName)
	if err != nil {
		s.respondError(c, err, request)
		return
	}
	c.IndentedJSON(http.StatusOK, api.BackupResponse{FileName: filename, Exported: len(contacts)})
}

// importContacts reads a backup file and creates a contact owned by the caller for every record.
// Records whose phone number already exists are skipped. A missing backup file imports nothing.
//
// Example REST API call:
//
//	> curl --user ada:analytical http://localhost:8080/import --request "POST" --header "Content-Type: application/json" --data '{"file_name": "friends.json"}'
func (s *Service) importContacts(c *gin.Context) {
	request, ok := bindBackupRequest(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	owner := caller(c)
	imported, err := s.codec.Import(request.FileName, func(fields model.Fields) error {
		_, err := s.store.Create(ctx, fields, owner)
		return err
	})
	if err != nil {
		s.respondError(c, err, request)
		return
	}
	filename, _ := s.codec.ResolveFilename(request.FileName)
	c.IndentedJSON(http.StatusOK, api.ImportResponse{FileName: filename, Imported: imported})
}

// bindBackupRequest reads the optional JSON body of the backup and import endpoints.
func bindBackupRequest(c *gin.Context) (api.BackupRequest, bool) {
	var request api.BackupRequest
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return request, true
	}
	if err := c.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return request, false
	}
	return request, true
}

// parseID reads the id parameter of the request URL. Ids that are not numbers cannot exist, so
// they are answered with NOT FOUND without asking the database.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "invalid id parameter"})
		return 0, false
	}
	return id, true
}

// respondError translates an error into the matching HTTP response. Unexpected errors are logged
// and answered with INTERNAL SERVER ERROR. If submitted is not nil then it is echoed back so the
// client can present the rejected values again.
func (s *Service) respondError(c *gin.Context, err error, submitted any) {
	var validationError *store.ValidationError
	var status int
	body := gin.H{}
	switch {
	case errors.As(err, &validationError):
		status = http.StatusBadRequest
		body["message"] = "invalid values"
		body["errors"] = validationError.Fields
	case errors.Is(err, store.ErrDuplicateKey):
		status = http.StatusConflict
		body["message"] = err.Error()
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
		body["message"] = "contact not found"
	case errors.Is(err, store.ErrForbidden):
		status = http.StatusForbidden
		body["message"] = "contact belongs to another user"
	case errors.Is(err, backup.ErrInvalidFilename):
		status = http.StatusBadRequest
		body["message"] = err.Error()
	default:
		s.logger.Error("request failed",
			zap.String("request_id", logging.GetRequestID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
		return
	}
	if submitted != nil {
		body["submitted"] = submitted
	}
	c.AbortWithStatusJSON(status, body)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
