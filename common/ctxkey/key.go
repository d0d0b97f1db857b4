package ctxkey

const (
	// RequestModel is the model id named in the request body, for logs.
	// Set in: controller handlers after binding the body.
	RequestModel = "request_model"

	// ParserType is the output parser kind named in a parse request.
	ParserType = "parser_type"
)
