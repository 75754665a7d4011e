package main

// General API documentation for swaggo. Regenerate docs/ with `swag init -g cmd/modelgate/docs.go`.
//
// @title           modelgate API
// @version         1.0
// @description     OpenAI-compatible chat gateway over lazily loaded local model backends.
//
// @contact.name   modelgate maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
