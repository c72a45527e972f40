package host

// Stable error codes the extension branches on. Codes never change once
// shipped; messages are free to.
const (
	CodeReadMessage       = "ERR_READ_MESSAGE"
	CodeNotInitialized    = "ERR_NOT_INITIALIZED"
	CodeClone             = "ERR_CLONE"
	CodeInit              = "ERR_INIT"
	CodeParse             = "ERR_PARSE"
	CodeValidate          = "ERR_VALIDATE"
	CodeWriteFile         = "ERR_WRITE_FILE"
	CodeReadFile          = "ERR_READ_FILE"
	CodeOpenRepo          = "ERR_OPEN_REPO"
	CodeGitAdd            = "ERR_GIT_ADD"
	CodeGitCommit         = "ERR_GIT_COMMIT"
	CodeGitPush           = "ERR_GIT_PUSH"
	CodeGitPull           = "ERR_GIT_PULL"
	CodeNoRemote          = "ERR_NO_REMOTE"
	CodePathOutsideBase   = "ERR_PATH_OUTSIDE_BASE"
	CodeEncryptedFile     = "ERR_ENCRYPTED_FILE"
	CodeEnableEncryption  = "ERR_ENABLE_ENCRYPTION"
	CodeDisableEncryption = "ERR_DISABLE_ENCRYPTION"
	CodeOAuthStart        = "ERR_OAUTH_START"
	CodeNoToken           = "ERR_NO_TOKEN"
	CodeInvalidToken      = "ERR_INVALID_TOKEN"
	CodeValidateToken     = "ERR_VALIDATE_TOKEN"
	CodeStoreToken        = "ERR_STORE_TOKEN"
)
