// Package service provides the generic orchestration layer between domain
// services and repositorycache repositories.
package service
