// certcheck verifica un certificado .p12 del MH y muestra la llave derivada que se envía
// en el encabezado X-Certificate-Key.
//
// Uso: go run ./cmd/certcheck [-p12 ruta] [-password clave] [-company id]
// Sin -p12 usa DTE_CERT_PATH y DTE_CERT_PASSWORD. Con -company guarda la llave en la empresa.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	infradte "github.com/jhoicas/facturacion-dte/internal/infrastructure/dte"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/postgres"
	"github.com/jhoicas/facturacion-dte/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}

	certPath := flag.String("p12", cfg.DTE.CertPath, "ruta al certificado .p12")
	certPass := flag.String("password", cfg.DTE.CertPassword, "contraseña del .p12")
	companyID := flag.String("company", "", "ID de la empresa a la que se asigna la llave")
	flag.Parse()

	if *certPath == "" {
		fmt.Fprintln(os.Stderr, "Falta la ruta del certificado (-p12 o DTE_CERT_PATH)")
		os.Exit(2)
	}

	fmt.Println("🔍 DIAGNÓSTICO DE CERTIFICADO DTE")
	fmt.Println("----------------------------------")
	fmt.Printf("📂 Archivo: %s\n", *certPath)

	cert, err := infradte.LoadFromP12(*certPath, *certPass)
	if err != nil {
		fmt.Println("\n❌ ERROR DE ARCHIVO, CONTRASEÑA O FORMATO:")
		fmt.Printf("   %v\n", err)
		os.Exit(1)
	}

	now := time.Now()
	fmt.Printf("✅ Titular:  %s\n", cert.Leaf.Subject.CommonName)
	fmt.Printf("   Emisor:   %s\n", cert.Leaf.Issuer.CommonName)
	fmt.Printf("   Vigencia: %s → %s\n", cert.Leaf.NotBefore.Format(time.DateOnly), cert.Leaf.NotAfter.Format(time.DateOnly))
	if cert.Expired(now) {
		fmt.Println("⚠️  El certificado está vencido; el MH lo rechazará.")
	}
	fmt.Printf("🔑 Llave:    %s\n", cert.Key)

	if *companyID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Conexión a PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.NewCompanyRepository(pool).UpdateCertificateKey(ctx, *companyID, cert.Key); err != nil {
		fmt.Fprintf(os.Stderr, "Guardar llave: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("💾 Llave registrada para la empresa %s\n", *companyID)
}
