package main

import "github.com/lucasrcosta20/IA-Cadastro/cmd/iacadastro/cmd"

func main() {
	cmd.Execute()
}
