// apitoken emite el JWT con el que un sistema de facturación (POS, ERP) llama a la API DTE.
//
// Uso: go run ./cmd/apitoken -company <id> [-user <id>] [-role facturador] [-minutes 60]
// Firma con JWT_SECRET y JWT_ISSUER; sin -minutes usa JWT_EXPIRATION_MINUTES.
package main

import (
	"flag"
	"fmt"
	"os"
	"slices"

	httpRouter "github.com/jhoicas/facturacion-dte/internal/interfaces/http"
	"github.com/jhoicas/facturacion-dte/pkg/config"
	"github.com/jhoicas/facturacion-dte/pkg/jwt"
)

var roles = []string{httpRouter.RoleAdmin, httpRouter.RoleFacturador, httpRouter.RoleAuditor}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}

	companyID := flag.String("company", "", "ID de la empresa emisora")
	userID := flag.String("user", "integracion", "ID del usuario o sistema que llama")
	role := flag.String("role", httpRouter.RoleFacturador, "rol: admin, facturador o auditor")
	minutes := flag.Int("minutes", cfg.JWT.Expiration, "vigencia en minutos")
	flag.Parse()

	token, err := issue(cfg.JWT, *userID, *companyID, *role, *minutes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Emitir token: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(token)
}

func issue(cfg config.JWTConfig, userID, companyID, role string, minutes int) (string, error) {
	switch {
	case companyID == "":
		return "", fmt.Errorf("falta -company")
	case userID == "":
		return "", fmt.Errorf("falta -user")
	case !slices.Contains(roles, role):
		return "", fmt.Errorf("rol %q no válido", role)
	case minutes <= 0:
		return "", fmt.Errorf("la vigencia debe ser positiva")
	}
	return jwt.Generate(cfg.Secret, userID, companyID, role, cfg.Issuer, minutes)
}
